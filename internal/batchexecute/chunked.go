package batchexecute

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// parseChunkedResponse parses the length-prefixed form of a reply:
//
//	<chunk-length>
//	<chunk-data>
//	<chunk-length>
//	<chunk-data>
//
// Chunk data may span several lines. Chunks that are not RPC envelopes
// ("di", "af.httprm", "e") are skipped.
func parseChunkedResponse(r io.Reader) ([]Response, error) {
	scanner := bufio.NewScanner(r)
	const maxScanTokenSize = 10 * 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)

	var (
		chunks  []string
		current strings.Builder
		want    int
	)
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if current.Len() == 0 {
			if trimmed == "" {
				continue
			}
			if n, err := strconv.Atoi(trimmed); err == nil {
				want = n
				continue
			}
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
		if current.Len() >= want || json.Valid([]byte(current.String())) {
			flush()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan chunks: %w", err)
	}
	flush()

	var envelopes [][]interface{}
	for _, chunk := range chunks {
		var batch [][]interface{}
		if err := json.Unmarshal([]byte(chunk), &batch); err != nil {
			continue
		}
		for _, env := range batch {
			envelopes = append(envelopes, unwrapEnvelope(env)...)
		}
	}
	return extractResponses(envelopes)
}

// unwrapEnvelope accepts both [["wrb.fr",...]] and [[["wrb.fr",...]]] nesting.
func unwrapEnvelope(env []interface{}) [][]interface{} {
	if len(env) == 0 {
		return nil
	}
	if _, nested := env[0].([]interface{}); !nested {
		return [][]interface{}{env}
	}
	var out [][]interface{}
	for _, e := range env {
		if inner, ok := e.([]interface{}); ok {
			out = append(out, inner)
		}
	}
	return out
}
