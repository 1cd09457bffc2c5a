package http

import (
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/example/student-affairs/internal/notify"
)

const flashCookieName = "clubsite_flash"

// maxFlashNotifications bounds the cookie size.
const maxFlashNotifications = 5

// flashMaxAge is how long a flash survives between the redirect and the
// next page.
const flashMaxAge = 10 * time.Minute

// flashCookies carries notifications across a redirect in a signed cookie.
type flashCookies struct {
	codec  *securecookie.SecureCookie
	secure bool
}

// newFlashCookies signs with hashKey. An empty key gets a random one, so
// pending flashes do not survive a restart.
func newFlashCookies(hashKey []byte, secure bool) *flashCookies {
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
	}
	codec := securecookie.New(hashKey, nil)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(flashMaxAge / time.Second))
	return &flashCookies{codec: codec, secure: secure}
}

// set stores notifications for the next page render.
func (f *flashCookies) set(w http.ResponseWriter, notes []notify.Notification) {
	if len(notes) == 0 {
		return
	}
	if len(notes) > maxFlashNotifications {
		notes = notes[len(notes)-maxFlashNotifications:]
	}
	value, err := f.codec.Encode(flashCookieName, notes)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(flashMaxAge / time.Second),
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// take returns the pending notifications and clears the cookie. A cookie
// with a bad signature or an unknown level is dropped.
func (f *flashCookies) take(w http.ResponseWriter, r *http.Request) []notify.Notification {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
	})

	var notes []notify.Notification
	if err := f.codec.Decode(flashCookieName, cookie.Value, &notes); err != nil {
		return nil
	}
	valid := notes[:0]
	for _, n := range notes {
		if n.Level != notify.LevelSuccess && n.Level != notify.LevelError {
			continue
		}
		valid = append(valid, n)
	}
	return valid
}
