package embed

const (
	queryPrefix   = "query: "
	passagePrefix = "passage: "
)

// ApplyPrefix adds the query/passage marker some retrieval models are trained with.
func ApplyPrefix(text string, inputType InputType) string {
	switch inputType {
	case InputTypeQuery:
		return queryPrefix + text
	case InputTypePassage:
		return passagePrefix + text
	default:
		return text
	}
}
