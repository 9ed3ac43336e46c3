package emit

// reservedWords holds every POSIX sh reserved word and special builtin name
// that a generated identifier must never shadow. Initialized once, read-only;
// shared safely across parallel compilations.
var reservedWords = map[string]bool{
	// reserved words (IEEE Std 1003.1, 2.4)
	"if": true, "then": true, "else": true, "elif": true, "fi": true,
	"do": true, "done": true, "case": true, "esac": true,
	"while": true, "until": true, "for": true, "in": true,

	// special builtins (2.14) and common utilities a function name would shadow
	"break": true, "continue": true, "eval": true, "exec": true, "exit": true,
	"export": true, "readonly": true, "return": true, "set": true, "shift": true,
	"times": true, "trap": true, "unset": true, "local": true,
	"test": true, "true": true, "false": true, "read": true,

	// variables the generated runtime itself depends on
	"IFS": true, "PATH": true,
}

// Mangle maps a source identifier to a shell-safe one. Reserved words and
// shadowing names get a leading underscore; everything else passes through
// unchanged, keeping generated scripts readable.
func Mangle(name string) string {
	if reservedWords[name] {
		return "_" + name
	}
	return name
}
