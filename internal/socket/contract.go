// Package socket declares the contract for the telephony/socket layer
// that streams typing indicators and replies to the end user
// (spec.md §6). It is an external collaborator; no transport is
// implemented here.
package socket

// Server is the declared telephony socket-server surface the
// Dispatcher and its sub-state-machines emit to.
type Server interface {
	// IsTyping toggles the end user's typing indicator. Exactly one
	// is-typing=false is emitted on every terminal branch that does
	// not delegate to the Brain (spec.md P2).
	IsTyping(typing bool)

	// Suggest presents a list of suggestion chips, used by the Slot
	// Filler when asking for a missing slot value.
	Suggest(suggestions []string)
}
