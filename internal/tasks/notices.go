package tasks

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// NoticeKind classifies coordinator notices for the UI.
type NoticeKind int

const (
	NoticeConfirmed NoticeKind = iota
	NoticeConflict
	NoticeFailure
	NoticeDropped
	NoticeRemote
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeConfirmed:
		return "confirmed"
	case NoticeConflict:
		return "conflict"
	case NoticeFailure:
		return "failure"
	case NoticeDropped:
		return "dropped"
	case NoticeRemote:
		return "remote"
	default:
		return ""
	}
}

// Notice reports the outcome of a mutation or a remote change.
//
// Notices are informational: persistence problems never surface as returned errors once the
// optimistic step has been applied.
type Notice struct {
	Kind       NoticeKind
	PlaylistID string
	Seq        uint64 // zero for remote changes
	Message    string
	Err        error
}

// Retryable reports whether the user may reasonably issue the edit again.
func (n Notice) Retryable() bool { return n.Kind == NoticeFailure }

func (n Notice) String() string {
	if n.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", n.Kind, n.Message, n.Err)
	}
	return fmt.Sprintf("%s: %s", n.Kind, n.Message)
}

func (n Notice) level() log.Level {
	switch n.Kind {
	case NoticeConfirmed:
		return log.DebugLevel
	case NoticeFailure, NoticeDropped:
		return log.WarnLevel
	default:
		return log.InfoLevel
	}
}

func confirmedNotice(m *Mutation) Notice {
	return Notice{
		Kind:       NoticeConfirmed,
		PlaylistID: m.PlaylistID,
		Seq:        m.Seq,
		Message:    fmt.Sprintf("%s saved", m.Kind),
	}
}

func conflictNotice(m *Mutation, err error) Notice {
	return Notice{
		Kind:       NoticeConflict,
		PlaylistID: m.PlaylistID,
		Seq:        m.Seq,
		Message:    "playlist updated by another collaborator",
		Err:        err,
	}
}

func failureNotice(m *Mutation, err error) Notice {
	return Notice{
		Kind:       NoticeFailure,
		PlaylistID: m.PlaylistID,
		Seq:        m.Seq,
		Message:    fmt.Sprintf("could not save %s, changes reverted", m.Kind),
		Err:        err,
	}
}

func droppedNotice(m *Mutation, err error) Notice {
	return Notice{
		Kind:       NoticeDropped,
		PlaylistID: m.PlaylistID,
		Seq:        m.Seq,
		Message:    fmt.Sprintf("%s no longer applies to the updated playlist", m.Kind),
		Err:        err,
	}
}

func remoteNotice(playlistID string) Notice {
	return Notice{
		Kind:       NoticeRemote,
		PlaylistID: playlistID,
		Message:    "playlist changed by a collaborator",
	}
}
