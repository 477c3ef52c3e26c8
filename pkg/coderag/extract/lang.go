package extract

import "strings"

// detectLanguage applies lexical heuristics when no class hint identifies
// a code block's language. Best-effort, not exact: ambiguous Go guesses
// are confirmed downstream by the chunker via tree-sitter (see
// pkg/coderag/chunk).
func detectLanguage(code string) string {
	trimmed := strings.TrimSpace(code)
	switch {
	case strings.Contains(trimmed, "package ") && strings.Contains(trimmed, "func "):
		return "go"
	case strings.Contains(trimmed, "def ") && strings.Contains(trimmed, ":"):
		return "python"
	case strings.Contains(trimmed, "fn ") && strings.Contains(trimmed, "->"):
		return "rust"
	case strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "["):
		return "json"
	case strings.Contains(trimmed, "function ") || strings.Contains(trimmed, "=>"):
		return "javascript"
	case strings.HasPrefix(trimmed, "$") || strings.HasPrefix(trimmed, "#!/"):
		return "shell"
	case strings.Contains(trimmed, "SELECT ") || strings.Contains(trimmed, "select "):
		return "sql"
	default:
		return ""
	}
}

// apiSignatureHints are lexical markers of a type/function signature
// listing rather than a runnable usage example, used to classify a code
// block as api_reference instead of code_example.
var apiSignatureHints = []string{
	"interface ", "type ", "abstract class", "struct ", "enum ",
}

// classifyCode decides whether a code block reads as API reference
// material or a usage example. Heuristic, not exact: a block with no
// function call or assignment and at least one signature-shaped keyword
// is treated as reference material.
func classifyCode(code string) (kind string) {
	lower := strings.ToLower(code)
	hasSignatureHint := false
	for _, hint := range apiSignatureHints {
		if strings.Contains(lower, hint) {
			hasSignatureHint = true
			break
		}
	}
	looksExecuted := strings.Contains(code, "(") && strings.Contains(code, ")") &&
		(strings.Contains(code, "=") || strings.Contains(code, ";"))

	if hasSignatureHint && !looksExecuted {
		return "api_reference"
	}
	return "code_example"
}
