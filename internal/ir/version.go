package ir

// Version constants for the tree encoding and the tool.
const (
	// EncodingVersion is the version of the literal tree encoding stored in
	// the journal and in golden files.
	EncodingVersion = "1"

	// ToolVersion is the qmx version.
	ToolVersion = "0.1.0"
)
