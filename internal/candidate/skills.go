package candidate

import "strings"

// canonicalSkills maps lowercase variants to the vocabulary used across profiles.
var canonicalSkills = map[string]string{
	"go":               "Go",
	"golang":           "Go",
	"go lang":          "Go",
	"javascript":       "JavaScript",
	"js":               "JavaScript",
	"typescript":       "TypeScript",
	"ts":               "TypeScript",
	"k8s":              "Kubernetes",
	"kubernetes":       "Kubernetes",
	"react.js":         "React",
	"reactjs":          "React",
	"next.js":          "Next.js",
	"nextjs":           "Next.js",
	"vue.js":           "Vue",
	"vuejs":            "Vue",
	"node.js":          "Node.js",
	"nodejs":           "Node.js",
	"node":             "Node.js",
	"express.js":       "Express.js",
	"expressjs":        "Express.js",
	"python":           "Python",
	"python3":          "Python",
	"fastapi":          "FastAPI",
	"django":           "Django",
	"flask":            "Flask",
	"pytorch":          "PyTorch",
	"tensorflow":       "TensorFlow",
	"scikit-learn":     "Scikit-learn",
	"sklearn":          "Scikit-learn",
	"nlp":              "NLP",
	"ml":               "Machine Learning",
	"machine learning": "Machine Learning",
	"dl":               "Deep Learning",
	"deep learning":    "Deep Learning",
	"sql":              "SQL",
	"postgres":         "PostgreSQL",
	"postgresql":       "PostgreSQL",
	"mysql":            "MySQL",
	"mongodb":          "MongoDB",
	"mongo":            "MongoDB",
	"aws":              "AWS",
	"gcp":              "GCP",
	"google cloud":     "GCP",
	"azure":            "Azure",
	"docker":           "Docker",
	"git":              "Git",
	"ci/cd":            "CI/CD",
	"html":             "HTML",
	"html5":            "HTML",
	"css":              "CSS",
	"css3":             "CSS",
	"tailwind":         "Tailwind CSS",
	"tailwind css":     "Tailwind CSS",
	"tailwindcss":      "Tailwind CSS",
	"rest":             "REST",
	"graphql":          "GraphQL",
	"c++":              "C++",
	"c#":               "C#",
	"api":              "API",
	"apis":             "APIs",
	"rest api":         "REST API",
	"cli":              "CLI",
	"etl":              "ETL",
	"llm":              "LLM",
	"ui":               "UI",
	"ux":               "UX",
	"ui/ux":            "UI/UX",
	"php":              "PHP",
	"json":             "JSON",
	"xml":              "XML",
	"jwt":              "JWT",
	"oop":              "OOP",
	"tdd":              "TDD",
}

// NormalizeSkill returns the canonical spelling of a skill name.
func NormalizeSkill(skill string) string {
	normalized := strings.Join(strings.Fields(skill), " ")
	if normalized == "" {
		return ""
	}

	lower := strings.ToLower(normalized)
	if canonical, ok := canonicalSkills[lower]; ok {
		return canonical
	}

	// Mixed case is kept as written (e.g. "GraphQL", "iOS"). All caps is title-cased
	// unless canonicalSkills lists it as an acronym.
	if normalized != lower && normalized != strings.ToUpper(normalized) {
		return normalized
	}

	return titleWords(lower)
}

// NormalizeSkills standardizes names and drops case-insensitive duplicates,
// keeping the first occurrence. The result is never nil.
func NormalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, skill := range skills {
		name := NormalizeSkill(skill)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
