package evidence

import (
	"strings"

	prose "github.com/jdkato/prose/v2"
)

// BuildQuery condenses the free-text trigger description into a retrieval
// query: content words only (nouns, adjectives, verbs), suffixed with the
// equipment model so the vector search stays on-topic even when the
// metadata filter is broad. Falls back to the raw trigger when tagging
// yields nothing usable.
func BuildQuery(trigger, equipmentModel string) string {
	trigger = strings.TrimSpace(trigger)
	if trigger == "" {
		return equipmentModel
	}

	doc, err := prose.NewDocument(trigger)
	if err != nil {
		return join(trigger, equipmentModel)
	}

	var keywords []string
	for _, tok := range doc.Tokens() {
		if isContentTag(tok.Tag) {
			keywords = append(keywords, strings.ToLower(tok.Text))
		}
	}

	if len(keywords) == 0 {
		return join(trigger, equipmentModel)
	}
	return join(strings.Join(keywords, " "), equipmentModel)
}

// isContentTag accepts Penn Treebank noun (NN*), verb (VB*) and adjective
// (JJ*) tags.
func isContentTag(tag string) bool {
	return strings.HasPrefix(tag, "NN") ||
		strings.HasPrefix(tag, "VB") ||
		strings.HasPrefix(tag, "JJ")
}

func join(query, equipmentModel string) string {
	if equipmentModel == "" {
		return query
	}
	return query + " " + equipmentModel
}
