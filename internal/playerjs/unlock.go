package playerjs

import (
	"errors"
	"net/url"
)

// ErrLocked means a stream URL could not be unlocked: the advertisement
// carried neither a direct URL nor a solvable cipher.
var ErrLocked = errors.New("stream url is locked")

// Unlock turns an advertised stream reference into a playable URL.
// rawURL and cipher come from the player response: direct streams carry
// rawURL, protected streams carry the signature cipher instead. Both
// shapes may additionally carry a throttled "n" parameter.
func Unlock(script *Script, rawURL, cipher string) (string, error) {
	if rawURL == "" {
		if cipher == "" {
			return "", ErrLocked
		}
		solved, err := solveCipher(script, cipher)
		if err != nil {
			return "", err
		}
		rawURL = solved
	}
	return transformThrottleParam(script, rawURL)
}

func solveCipher(script *Script, cipher string) (string, error) {
	params, err := url.ParseQuery(cipher)
	if err != nil {
		return "", ErrLocked
	}
	streamURL := params.Get("url")
	if streamURL == "" {
		return "", ErrLocked
	}
	u, err := url.Parse(streamURL)
	if err != nil {
		return "", ErrLocked
	}

	sig := params.Get("s")
	if sig == "" {
		return u.String(), nil
	}
	decoded, err := script.DecodeSignature(sig)
	if err != nil {
		return "", err
	}
	param := params.Get("sp")
	if param == "" {
		param = "signature"
	}
	q := u.Query()
	q.Set(param, decoded)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func transformThrottleParam(script *Script, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	n := q.Get("n")
	if n == "" {
		return rawURL, nil
	}
	transformed, err := script.TransformN(n)
	if err != nil {
		// A stale n value degrades throughput but often still plays.
		return rawURL, nil
	}
	q.Set("n", transformed)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
