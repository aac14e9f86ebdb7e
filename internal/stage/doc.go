// Package stage defines the per-stage analysis services that enrich an
// idea as it moves through its lifecycle. Each stage owns its prompt and
// reads only the request parameters relevant to it; all stages share the
// same completion, decoding, and audit-recording path.
package stage
