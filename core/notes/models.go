package notes

import (
	"io"
	"strings"
	"time"
)

type NoteType string

const (
	TypeNotes      NoteType = "notes"
	TypeTest       NoteType = "test"
	TypeAssignment NoteType = "assignment"
	TypeProject    NoteType = "project"
)

var NoteTypes = []NoteType{TypeNotes, TypeTest, TypeAssignment, TypeProject}

func (t NoteType) IsValid() bool {
	for _, nt := range NoteTypes {
		if t == nt {
			return true
		}
	}
	return false
}

type (
	// UserProfile is the aggregate root of a user's note tree.
	// Version is bumped on every save and guards conditional writes.
	UserProfile struct {
		UUID     string    `json:"uuid" bson:"_id"`
		Subjects []Subject `json:"subjects" bson:"subjects"`
		Version  int64     `json:"version" bson:"version"`
	}

	Subject struct {
		ID        string    `json:"id" bson:"id"`
		Name      string    `json:"name" bson:"name"`
		Chapters  []Chapter `json:"chapters" bson:"chapters"`
		CreatedAt time.Time `json:"createdAt" bson:"createdAt"` // UTC
	}

	Chapter struct {
		ID        string    `json:"id" bson:"id"`
		Name      string    `json:"name" bson:"name"`
		Notes     []Note    `json:"notes" bson:"notes"`
		CreatedAt time.Time `json:"createdAt" bson:"createdAt"` // UTC
	}

	Note struct {
		ID        string    `json:"id" bson:"id"`
		Title     string    `json:"title" bson:"title"`
		Content   string    `json:"content" bson:"content"`
		Type      NoteType  `json:"type" bson:"type"`
		FileURL   string    `json:"fileUrl" bson:"fileUrl"`
		MimeType  string    `json:"mimeType" bson:"mimeType"`
		CreatedAt time.Time `json:"createdAt" bson:"createdAt"` // UTC
	}

	// SubjectList is the first-use aware listing of a user's subjects.
	SubjectList struct {
		HasSubjects bool      `json:"hasSubjects"`
		Subjects    []Subject `json:"subjects"`
		Message     string    `json:"message,omitempty"`
	}

	// NewNote contains the information needed to append a Note to a Chapter.
	NewNote struct {
		SubjectID string
		ChapterID string
		Title     string
		Content   string
		Type      NoteType
	}

	// FileUpload is a file attached to a NewNote.
	FileUpload struct {
		Filename    string
		ContentType string
		Size        int64
		Body        io.Reader
	}
)

func NewProfile(userID string) UserProfile {
	return UserProfile{UUID: userID, Subjects: []Subject{}}
}

// Subject returns a pointer into p.Subjects, so that mutations stick to the aggregate.
func (p *UserProfile) Subject(id string) (*Subject, bool) {
	for i := range p.Subjects {
		if p.Subjects[i].ID == id {
			return &p.Subjects[i], true
		}
	}
	return nil, false
}

func (s *Subject) Chapter(id string) (*Chapter, bool) {
	for i := range s.Chapters {
		if s.Chapters[i].ID == id {
			return &s.Chapters[i], true
		}
	}
	return nil, false
}

// clean trims the user-provided fields and applies defaults.
func (nn *NewNote) clean() {
	nn.SubjectID = strings.TrimSpace(nn.SubjectID)
	nn.ChapterID = strings.TrimSpace(nn.ChapterID)
	nn.Title = strings.TrimSpace(nn.Title)
	nn.Type = NoteType(strings.ToLower(strings.TrimSpace(string(nn.Type))))
	if nn.Type == "" {
		nn.Type = TypeNotes
	}
}
