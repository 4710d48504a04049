package prompt

import (
	"strings"
	"time"
)

// TimestampLayout renders e.g. "Monday, March 02, 2026 09:30"
const TimestampLayout = "Monday, January 02, 2006 15:04"

// Build composes the persona block, the current timestamp and the trimmed
// question. It does not validate; callers reject blank questions first.
func Build(persona, question string, now time.Time) string {
	var sb strings.Builder

	if p := strings.TrimSpace(persona); p != "" {
		sb.WriteString(p)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Current Date and Time: ")
	sb.WriteString(now.Format(TimestampLayout))
	sb.WriteString("\n\nUser Question: ")
	sb.WriteString(strings.TrimSpace(question))

	return sb.String()
}

// Builder binds a persona and a clock so callers only pass the question
type Builder struct {
	persona string
	now     func() time.Time
}

// NewBuilder creates a Builder. A nil clock means time.Now.
func NewBuilder(persona Persona, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{persona: persona.Text(), now: now}
}

// Build composes the prompt for question at the current time
func (b *Builder) Build(question string) string {
	return Build(b.persona, question, b.now())
}

// Persona returns the rendered persona block
func (b *Builder) Persona() string {
	return b.persona
}
