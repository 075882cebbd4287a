package workspace

// Runtime identifiers understood by the code execution service. Each maps to
// one endpoint path on the execution boundary.
const (
	RuntimeNode   = "node"
	RuntimePython = "python"
	RuntimeC      = "c"
	RuntimeCPP    = "cpp"
	RuntimeJava   = "java"
)

// runtimesByExtension selects an execution runtime from a file extension.
var runtimesByExtension = map[string]string{
	"js":   RuntimeNode,
	"py":   RuntimePython,
	"c":    RuntimeC,
	"cpp":  RuntimeCPP,
	"java": RuntimeJava,
}

// RuntimeFor returns the execution runtime for a lowercase extension, or an
// empty string when the extension has no runnable runtime.
func RuntimeFor(extension string) string {
	return runtimesByExtension[extension]
}

// Runtimes lists every supported execution runtime.
func Runtimes() []string {
	return []string{RuntimePython, RuntimeNode, RuntimeC, RuntimeCPP, RuntimeJava}
}

// SupportedRuntime reports whether the identifier names a known runtime.
func SupportedRuntime(runtime string) bool {
	for _, known := range Runtimes() {
		if known == runtime {
			return true
		}
	}
	return false
}
