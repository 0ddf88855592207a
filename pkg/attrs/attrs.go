// Package attrs names the structured log keys shared across packages so that
// log queries can rely on one spelling.
package attrs

const (
	RequestID       = "request_id"
	AccountID       = "account_id"
	ProcedureID     = "procedure_id"
	ProcedureCode   = "procedure_code"
	CommunicationID = "communication_id"
	ArchiveID       = "archive_id"
	FolderID        = "folder_id"
	EventType       = "event_type"
	Error           = "error"
)

// ExtractString extracts a string value from a key-value attribute slice.
// The slice should be formatted as [key1, value1, key2, value2, ...].
// Returns empty string if the key is not found or the value is not a string.
func ExtractString(args []any, key string) string {
	for i := 0; i < len(args)-1; i += 2 {
		k, ok := args[i].(string)
		if !ok {
			continue
		}
		if k == key {
			if v, ok := args[i+1].(string); ok {
				return v
			}
		}
	}
	return ""
}
