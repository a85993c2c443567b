package pipeline

// Stage names used in errors and logs.
const (
	StageRead      = "read"
	StageClassify  = "classify"
	StageExtract   = "extract"
	StageNormalize = "normalize"
	StageCommit    = "commit"
	StageAnswer    = "answer"
)

// EmptyStoreMessage is returned verbatim when a question arrives before any upload.
const EmptyStoreMessage = "Please upload a financial statement first."

// UnknownStatementMessage is the upload message for unrecognised spreadsheets.
const UnknownStatementMessage = "⚠️ Could not identify statement type"
