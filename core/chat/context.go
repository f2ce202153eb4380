package chat

import (
	"fmt"
	"strings"

	"github.com/trezcool/studybuddy/core/notes"
)

// BuildNotesContext serializes the note tree in storage order, e.g.
//
//	Subject: Biology
//	  Chapter: Cell Theory
//	    - Mitochondria notes (notes): Powerhouse of the cell
//
// The result is not truncated.
func BuildNotesContext(subjects []notes.Subject) string {
	var b strings.Builder
	for _, subj := range subjects {
		fmt.Fprintf(&b, "Subject: %s\n", subj.Name)
		for _, chap := range subj.Chapters {
			fmt.Fprintf(&b, "  Chapter: %s\n", chap.Name)
			for _, note := range chap.Notes {
				fmt.Fprintf(&b, "    - %s (%s)", note.Title, note.Type)
				if content := strings.TrimSpace(note.Content); content != "" {
					fmt.Fprintf(&b, ": %s", content)
				}
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

// truncate returns the first n runes of s.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
