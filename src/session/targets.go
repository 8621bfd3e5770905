package session

import (
	"errors"

	"floating-dictionary/src/clipboard"
	"floating-dictionary/src/singleinstance"
)

// ClipboardTarget copies the translation when Enabled.
type ClipboardTarget struct {
	Enabled bool
	// Write defaults to clipboard.Write.
	Write func(string) error
}

func (t ClipboardTarget) OnSuccess(s *Session) error {
	if !t.Enabled || s.TranslatedText == "" {
		return nil
	}
	write := t.Write
	if write == nil {
		write = clipboard.Write
	}
	return write(s.TranslatedText)
}

func (ClipboardTarget) OnFailure(error) error { return nil }

// DelegatedTarget answers a client that asked the resident instance to
// capture. A cancelled selection or a window closed early counts as OK.
type DelegatedTarget struct {
	Conn singleinstance.Conn
	Next ResultTarget // optional
}

func (t DelegatedTarget) OnSuccess(s *Session) error {
	if t.Next != nil {
		if err := t.Next.OnSuccess(s); err != nil {
			return err
		}
	}
	if t.Conn == nil {
		return errors.New("delegated target missing connection")
	}
	return t.Conn.RespondOK()
}

func (t DelegatedTarget) OnFailure(err error) error {
	if t.Next != nil {
		_ = t.Next.OnFailure(err)
	}
	if t.Conn == nil {
		return nil
	}
	if errors.Is(err, ErrSelectionCancelled) || errors.Is(err, ErrPresenterClosed) {
		return t.Conn.RespondOK()
	}
	if err == nil {
		return t.Conn.RespondError("unknown session error")
	}
	return t.Conn.RespondError(err.Error())
}
