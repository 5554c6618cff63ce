package tagedit

// Kind classifies a user-visible notification.
type Kind int

const (
	KindSuccess Kind = iota
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Messages reported through the Notifier.
const (
	MsgEmptyName    = "tag name is empty"
	MsgModified     = "Modified successfully"
	MsgModifyFailed = "Modification failed"
)

// Notifier delivers fire-and-forget feedback to the user.
type Notifier interface {
	Notify(kind Kind, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(kind Kind, message string)

func (f NotifierFunc) Notify(kind Kind, message string) {
	f(kind, message)
}
