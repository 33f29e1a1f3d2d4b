//go:build !debug
// +build !debug

package thread

// Release builds skip thread-identity checks entirely; the cost of
// capturing a goroutine ID on every call isn't worth paying once the
// debug build has already caught a violation.

func SetMainThread()                         {}
func MarkAudioThread()                       {}
func UnmarkAudioThread()                     {}
func AssertMainThread(operation string)      {}
func AssertAudioThread(operation string)     {}
func AssertNotAudioThread(operation string)  {}
