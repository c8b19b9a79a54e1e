package api

import "context"

type captchaContextKey struct{}

type captchaAnswer struct {
	sid string
	key string
}

// WithCaptchaAnswer returns a context whose calls carry captcha_sid and
// captcha_key. Use it to repeat a call that failed with a captcha error.
func WithCaptchaAnswer(ctx context.Context, sid, key string) context.Context {
	return context.WithValue(ctx, captchaContextKey{}, captchaAnswer{sid: sid, key: key})
}

func captchaFromContext(ctx context.Context) (captchaAnswer, bool) {
	a, ok := ctx.Value(captchaContextKey{}).(captchaAnswer)
	return a, ok && a.sid != ""
}
