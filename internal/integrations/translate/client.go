package translate

import "context"

// Client is the external translation collaborator: one string in, one
// translated string out.
type Client interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}
