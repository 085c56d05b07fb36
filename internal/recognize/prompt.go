package recognize

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/SYNOVA-LABS/ADA/internal/models"
)

// Metadata is what a prompt can contribute to a new identity.
type Metadata struct {
	Label  models.Label
	Access models.AccessLevel
}

// MetadataPrompt is asked once per enrollment. Returning ok=false means no
// metadata was provided and the identity gets a generated placeholder name
// with guest access.
type MetadataPrompt interface {
	Collect(ctx context.Context, crop []byte) (meta Metadata, ok bool)
}

// NopPrompt never provides metadata. It is the default: a service has no
// console to ask on, and enrollment must not stall the loop.
type NopPrompt struct{}

func (NopPrompt) Collect(context.Context, []byte) (Metadata, bool) {
	return Metadata{}, false
}

// ConsolePrompt asks for a name and access level interactively. Meant for
// attended setups where someone sits at the terminal while new people are
// introduced to the camera. It blocks the loop until answered.
type ConsolePrompt struct {
	r *bufio.Reader
	w io.Writer
}

func NewConsolePrompt(r io.Reader, w io.Writer) *ConsolePrompt {
	return &ConsolePrompt{r: bufio.NewReader(r), w: w}
}

func (p *ConsolePrompt) Collect(_ context.Context, _ []byte) (Metadata, bool) {
	fmt.Fprint(p.w, "new face detected, name (empty to auto-generate): ")
	name, err := p.r.ReadString('\n')
	if err != nil {
		return Metadata{}, false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Metadata{}, false
	}

	fmt.Fprint(p.w, "access level [guest/user/admin] (default guest): ")
	rawLevel, err := p.r.ReadString('\n')
	if err != nil {
		return Metadata{}, false
	}
	level, parseErr := models.ParseAccessLevel(strings.TrimSpace(rawLevel))
	if parseErr != nil {
		level = models.AccessGuest
	}
	return Metadata{Label: models.NamedLabel(name), Access: level}, true
}
