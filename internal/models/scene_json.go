package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// insertJSON mirrors Insert for decoding. Content authors write the
// paragraph-targeted position as "AFTER_PARAGRAPH:n", which splits into
// InsertAt and Paragraph here.
type insertJSON struct {
	ID        string    `json:"id"`
	Condition Condition `json:"condition"`
	Text      string    `json:"text"`
	InsertAt  string    `json:"insert_at"`
	Paragraph int       `json:"paragraph"`
}

func (ins *Insert) UnmarshalJSON(data []byte) error {
	var raw insertJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ins.ID = raw.ID
	ins.Condition = raw.Condition
	ins.Text = raw.Text
	ins.Paragraph = raw.Paragraph

	position, suffix, found := strings.Cut(raw.InsertAt, ":")
	ins.InsertAt = InsertPosition(position)
	if found && ins.InsertAt == AfterParagraph {
		n, err := strconv.Atoi(suffix)
		if err != nil {
			return err
		}
		ins.Paragraph = n
	}
	return nil
}

func (ins Insert) MarshalJSON() ([]byte, error) {
	position := string(ins.InsertAt)
	if ins.InsertAt == AfterParagraph {
		position = position + ":" + strconv.Itoa(ins.Paragraph)
	}
	return json.Marshal(insertJSON{
		ID:        ins.ID,
		Condition: ins.Condition,
		Text:      ins.Text,
		InsertAt:  position,
		Paragraph: ins.Paragraph,
	})
}
