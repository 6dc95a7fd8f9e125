// Package secretary defines the domain types and collaborator interfaces of
// the Секретарь+ assistant core.
//
// The root package holds no behavior beyond small helpers on its types.
// Implementations live in sub-packages: store (conversation history),
// router (intent classification), handler (per-intent prompt building),
// backend (retrying generative adapter), lifecycle (authentication state)
// and chat (the send pipeline that ties them together). Vendor adapters are
// named after the dependency they wrap.
package secretary

// Storage keys used with a Medium.
const (
	KeyPrefix              = "secretary-plus-"
	KeyChatHistory         = KeyPrefix + "chat-history"
	KeyAuthToken           = KeyPrefix + "auth-token"
	KeyCurrentConversation = KeyPrefix + "current-conversation"
)

// Medium is a synchronous key/value persistence medium. Load returns
// ErrNotFound when the key is absent.
type Medium interface {
	Save(key string, value []byte) error
	Load(key string) ([]byte, error)
	Delete(key string) error
}
