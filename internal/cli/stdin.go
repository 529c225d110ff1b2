package cli

import "os"

// Piped reports whether f carries piped input rather than an
// interactive terminal. Character devices (a tty, /dev/null) are not
// piped; pipes, sockets and file redirects are.
func Piped(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return pipedMode(info.Mode())
}

func pipedMode(mode os.FileMode) bool {
	return mode&os.ModeCharDevice == 0
}
