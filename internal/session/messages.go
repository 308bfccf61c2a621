package session

import "fmt"

const (
	displayTranslating       = "Translating..."
	displayTranslationFailed = "Error: Could not translate."
	displayNoTranslation     = "No translation available"

	noticeRecognitionUnavailable = "Speech recognition is not available. Type your text instead."
	noticeRecognitionStartFailed = "Could not start speech recognition."
	noticeSynthesisUnavailable   = "Speech synthesis is not available."
	noticeRecognitionErrorFormat = "Speech recognition stopped: %v"
)

func recognitionErrorNotice(err error) string {
	return fmt.Sprintf(noticeRecognitionErrorFormat, err)
}
