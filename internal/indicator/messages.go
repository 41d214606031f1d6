package indicator

type messages struct {
	listening string
	delivered string
	speaking  string
	errorText string
}

var englishMessages = messages{
	listening: "Listening on %s",
	delivered: "Sent to chat: %q",
	speaking:  "Speaking: %q",
	errorText: "Voice relay error",
}
