package auth

import (
	"context"
	"io"

	"github.com/johnsto/go-passwordless"
)

func (a *Auth) getTransport() string {
	if a.Environment == EnvProduction {
		return "Email"
	}
	return "Log"
}

// RequestConfirm will send a link to email with the account confirmation token
func (a *Auth) RequestConfirm(ctx context.Context, uid, recipient string) error {
	return a.pw.RequestToken(ctx, a.getTransport(), uid, recipient)
}

// VerifyConfirm checks if the confirmation token is valid and corresponds to the user
func (a *Auth) VerifyConfirm(ctx context.Context, uid, token string) (bool, error) {
	valid, err := a.pw.VerifyToken(ctx, uid, token)
	switch err {
	case passwordless.ErrNoResponseWriter, passwordless.ErrNoStore, passwordless.ErrNoTransport, passwordless.ErrNotValidForContext:
		return valid, err
	default:
		return valid, nil
	}
}

func composeFuncGetter(options EmailOption) passwordless.ComposerFunc {
	return func(ctx context.Context, token, uid, recipient string, w io.Writer) error {
		e := &passwordless.Email{
			Subject: "Confirme a sua conta " + options.Name,
			To:      recipient,
		}

		link := options.LinkGenerator(uid, token)

		text := "An account on " + options.Name + " was created with your " +
			"email address.\n\n" +
			"Your confirmation token (expires in 24 hours) is " + token +
			" - or use the following link: " + link + "\n\n" +
			"(If you were not expecting this email, you can safely ignore it.)"
		html := "<!doctype html><html><body>" +
			"<p>An account on " + options.Name + " was created with your " +
			"email address.</p>" +
			"<p>Your confirmation token (expires in 24 hours) is <b>" + token + "</b> - or <a href=\"" + link + "\">" +
			"click here</a> to confirm your account.</p>" +
			"<p>(If you were not expecting this email, " +
			"you can safely ignore it.)</p></body></html>"

		e.AddBody("text/plain", text)
		e.AddBody("text/html", html)

		_, err := e.Write(w)

		return err
	}
}
