/*
nlmflow manages NotebookLM notebooks from the command line and runs
source-to-artifact pipelines against them.

Usage:

	nlmflow <command> [flags] [arguments]

Commands:

	list, ls [-json]                 List cached notebooks
	sync [-scrape]                   Reconcile the library with the remote listing
	create <name>                    Create a notebook and make it active
	rm [-f] <ref>                    Delete a notebook
	get <ref>                        Show notebook details
	activate <ref>                   Set the active notebook

	sources <ref>                    List sources
	add <ref> <source>               Add a URL, YouTube link, Drive link, file, text or '-'
	detect <source>                  Show how a source would be classified

	ask <ref> <question>             Ask a question against the sources
	history <ref>                    Show the chat history
	configure [options] <ref>        Set the chat goal, response length or persona
	generate [options] <ref> <type>  Generate, wait for and download an artifact
	artifacts [-type t] <ref>        List generated artifacts, optionally of one type
	artifact-rm [-f] <ref> <id>      Delete a generated artifact
	types                            List artifact types and options
	pipeline [options]               Create, add, ask, generate and write a note

	auth [-check]                    Capture or verify credentials
	mcp                              Serve library tools over MCP on stdio

A <ref> is a full notebook id, a unique prefix of a cached id, a notebook
URL, or "active". Commands that need the library sync it first when the
last sync is older than a day and credentials are available.

Pipeline plans can be given as flags or as a YAML file:

	name: Physics
	sources:
	  - https://en.wikipedia.org/wiki/Force
	  - notes.pdf
	questions:
	  - What is force?
	artifacts: [quiz, audio]
	note: ~/vault

Environment:

	NLMFLOW_HOME             state directory (default ~/.nlmflow)
	NLMFLOW_AUTH_TOKEN       session token
	NLMFLOW_COOKIES          session cookies
	NLMFLOW_LANGUAGE         default output language (default en)
	NLMFLOW_TIMEOUT          generation timeout (default 300s)
	NLMFLOW_POLL_INTERVAL    generation poll interval (default 5s)
	NLMFLOW_VAULT            default note directory for pipelines
	NLMFLOW_BROWSER_PROFILE  browser user data dir for auth
	NLMFLOW_BROWSER          browser binary for auth and scraping

Credentials captured by auth are stored in $NLMFLOW_HOME/env and loaded at
startup; variables already set in the environment take precedence.
*/
package main
