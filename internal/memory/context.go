package memory

import "strings"

// Context is the rolling conversation log handed to the fallback responder.
// It keeps only the most recent limit characters of the rendered log.
type Context struct {
	limit int
	text  []rune
	turns int
}

// NewContext returns an empty context bounded to limit characters.
func NewContext(limit int) *Context {
	if limit < 0 {
		limit = 0
	}
	return &Context{limit: limit}
}

// Append records one exchange and drops characters from the oldest end to stay in bounds.
func (c *Context) Append(user string, assistant string) {
	var turn strings.Builder
	turn.WriteString("\nUser: ")
	turn.WriteString(user)
	turn.WriteString("\nAssistant: ")
	turn.WriteString(assistant)

	c.text = append(c.text, []rune(turn.String())...)
	if over := len(c.text) - c.limit; over > 0 {
		c.text = append([]rune(nil), c.text[over:]...)
	}
	c.turns++
}

// String renders the retained log.
func (c *Context) String() string {
	return string(c.text)
}

// Len is the retained size in characters.
func (c *Context) Len() int {
	return len(c.text)
}

// Turns counts exchanges appended since start, including ones since truncated away.
func (c *Context) Turns() int {
	return c.turns
}
