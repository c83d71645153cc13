package discord

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teranos/jobpulse/errors"
	"github.com/teranos/jobpulse/listing"
	"github.com/teranos/jobpulse/sink"
)

// Embed colours and titles.
const (
	ColorOpened = 16755763 // amber
	ColorClosed = 15680580 // red

	TitleOpened = "🔔 New Job Listing"
	TitleClosed = "❌  Inactive Job Listing"
)

const (
	zeroWidthSpace = "​"
	emptyValue     = "--"
	simplifyURL    = "https://simplify.jobs/p/"
)

// Message is the webhook execute/edit body.
type Message struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds"`
}

// Embed is a rich embed.
type Embed struct {
	Color  int     `json:"color"`
	Title  string  `json:"title"`
	Fields []Field `json:"fields,omitempty"`
}

// Field is one embed field.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Renderer builds Discord payloads for listings.
type Renderer struct {
	roleID string
}

// NewRenderer creates a Renderer. A non-empty roleID is mentioned in every
// announcement.
func NewRenderer(roleID string) *Renderer {
	return &Renderer{roleID: roleID}
}

// RenderOpened implements sink.Renderer.
func (r *Renderer) RenderOpened(source string, l listing.Listing) (sink.Payload, error) {
	content := l.CompanyName + " • " + l.Title
	if r.roleID != "" {
		content = fmt.Sprintf("<@&%s>\n%s", r.roleID, content)
	}

	company := l.CompanyName
	if l.CompanyURL != "" {
		company = fmt.Sprintf("[%s](%s)", l.CompanyName, l.CompanyURL)
	}

	msg := Message{
		Content: content,
		Embeds: []Embed{{
			Color: ColorOpened,
			Title: TitleOpened,
			Fields: []Field{
				{Name: "Company", Value: orEmpty(company), Inline: true},
				{Name: "Role", Value: orEmpty(l.Title), Inline: true},
				{Name: zeroWidthSpace, Value: zeroWidthSpace, Inline: true},
				{Name: "Season", Value: orEmpty(l.Term.Label()), Inline: true},
				{Name: "Source", Value: orEmpty(repoOwner(source)), Inline: true},
				{Name: "Sponsorship", Value: orEmpty(l.Sponsorship), Inline: true},
				{Name: "Locations", Value: orEmpty(strings.Join(l.Locations, " / ")), Inline: true},
				{Name: "Posted", Value: fmt.Sprintf("<t:%d:R>", l.DatePosted), Inline: true},
				{Name: "URL", Value: orEmpty(applyURL(l))},
			},
		}},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(err, "encode discord message")
	}
	return data, nil
}

// RenderClosed implements sink.Renderer. It keeps the first embed of the
// original message, including fields it does not know about, and swaps its
// colour and title. Content is omitted so the edit leaves it untouched.
func (r *Renderer) RenderClosed(original sink.Payload) (sink.Payload, error) {
	var prev struct {
		Embeds []map[string]json.RawMessage `json:"embeds"`
	}
	if err := json.Unmarshal(original, &prev); err != nil {
		return nil, errors.NewCorruptStateError(err, "decode original discord message")
	}
	if len(prev.Embeds) == 0 {
		return nil, errors.NewCorruptStateError(errors.New("no embeds"), "decode original discord message")
	}

	embed := prev.Embeds[0]
	embed["color"] = json.RawMessage(fmt.Sprint(ColorClosed))
	title, err := json.Marshal(TitleClosed)
	if err != nil {
		return nil, errors.Wrap(err, "encode title")
	}
	embed["title"] = title

	data, err := json.Marshal(map[string]interface{}{
		"embeds": []map[string]json.RawMessage{embed},
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode discord edit")
	}
	return data, nil
}

// applyURL links Simplify listings to their simplify.jobs page.
func applyURL(l listing.Listing) string {
	if l.Source == listing.SourceSimplify && l.ID != "" {
		return simplifyURL + l.ID
	}
	return l.URL
}

// repoOwner returns the owner part of an "owner/name" source.
func repoOwner(source string) string {
	owner, _, _ := strings.Cut(source, "/")
	return owner
}

// Discord rejects empty field values.
func orEmpty(v string) string {
	if strings.TrimSpace(v) == "" {
		return emptyValue
	}
	return v
}

var _ sink.Renderer = (*Renderer)(nil)
