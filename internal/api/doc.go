/*
Package api is the NotebookLM remote service client.

Basic usage:

	client := api.New(authToken, cookies)

	// List notebooks
	notebooks, err := client.ListNotebooks(ctx)

	// Add a source picked by the source detector
	id, err := client.AddSource(ctx, notebookID, sources.Detect("https://example.com/paper"))

	// Generate a quiz and wait for it
	sub, err := client.SubmitGeneration(ctx, notebookID, params)

Every call goes through the batchexecute transport; failures are returned
as *RemoteServiceError so callers can tell remote failures apart from local
validation.
*/
package api
