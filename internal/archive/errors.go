package archive

import "fmt"

// LocaleError reports that no candidate keystream decrypted the probe
// string into the printable ASCII range (§4.3).
type LocaleError struct{ Msg string }

func (e *LocaleError) Error() string { return "wz: locale error: " + e.Msg }

func newLocaleError(format string, args ...any) error {
	return &LocaleError{fmt.Sprintf(format, args...)}
}
