package models

// Judge language identifiers accepted by the platform.
const (
	LanguageC          = 50
	LanguageCPP        = 54
	LanguageJava       = 62
	LanguageJavaScript = 63
	LanguagePython     = 71
)

// Language describes a selectable language and its fallback starter code.
type Language struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Template string `json:"template"`
}

var languages = map[int]Language{
	LanguageC: {
		ID:       LanguageC,
		Name:     "C (GCC 9.2.0)",
		Template: "#include <stdio.h>\n\nint main(void) {\n    // Your code here\n    return 0;\n}\n",
	},
	LanguageCPP: {
		ID:       LanguageCPP,
		Name:     "C++ (GCC 9.2.0)",
		Template: "#include <iostream>\nusing namespace std;\n\nint main() {\n    // Your code here\n    return 0;\n}\n",
	},
	LanguageJava: {
		ID:       LanguageJava,
		Name:     "Java (OpenJDK 13.0.1)",
		Template: "import java.util.*;\n\npublic class Main {\n    public static void main(String[] args) {\n        // Your code here\n    }\n}\n",
	},
	LanguageJavaScript: {
		ID:       LanguageJavaScript,
		Name:     "JavaScript (Node.js 12.14.0)",
		Template: "const input = require('fs').readFileSync(0, 'utf8');\n// Your code here\n",
	},
	LanguagePython: {
		ID:       LanguagePython,
		Name:     "Python (3.8.1)",
		Template: "import sys\n\n# Your code here\n",
	},
}

// LookupLanguage returns the language registered under id.
func LookupLanguage(id int) (Language, bool) {
	lang, ok := languages[id]
	return lang, ok
}

// SupportedLanguages lists the languages in ascending id order.
func SupportedLanguages() []Language {
	ids := []int{LanguageC, LanguageCPP, LanguageJava, LanguageJavaScript, LanguagePython}
	out := make([]Language, 0, len(ids))
	for _, id := range ids {
		out = append(out, languages[id])
	}
	return out
}

// StarterTemplate picks the question specific template, falling back to the language default.
func StarterTemplate(q Question, languageID int) string {
	if tpl, ok := q.Template(languageID); ok {
		return tpl
	}
	if lang, ok := languages[languageID]; ok {
		return lang.Template
	}
	return ""
}
