package workflow

import (
	"github.com/noah-isme/sma-records-console/internal/models"
)

// ModalKind enumerates the dialog states of a view.
type ModalKind int

const (
	Closed ModalKind = iota
	AddOpen
	EditOpen
	DeleteConfirm
)

func (k ModalKind) String() string {
	switch k {
	case Closed:
		return "closed"
	case AddOpen:
		return "add"
	case EditOpen:
		return "edit"
	case DeleteConfirm:
		return "delete-confirm"
	default:
		return "unknown"
	}
}

// Modal is the active dialog. Only the fields relevant to Kind are set.
type Modal struct {
	Kind ModalKind
	// RecordID is set in EditOpen and DeleteConfirm.
	RecordID string
	// Record is the server copy fetched when entering EditOpen.
	Record     models.Record
	Form       map[string]string
	Errors     []string
	Advisories []string
}

// IsForm reports whether the modal shows the add/edit form.
func (m Modal) IsForm() bool {
	return m.Kind == AddOpen || m.Kind == EditOpen
}

func (m Modal) clone() Modal {
	out := m
	out.Record = m.Record.Clone()
	if m.Form != nil {
		out.Form = make(map[string]string, len(m.Form))
		for k, v := range m.Form {
			out.Form[k] = v
		}
	}
	out.Errors = append([]string(nil), m.Errors...)
	out.Advisories = append([]string(nil), m.Advisories...)
	return out
}

// Notice is a message shown outside the modal, e.g. after a failed delete.
type Notice struct {
	Text  string
	Error bool
}
