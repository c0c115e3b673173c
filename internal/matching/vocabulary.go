package matching

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// vocabulary lists the terms recognized by the deterministic extractor.
// Values are display spellings for terms that do not title-case cleanly.
var vocabulary = map[string]string{
	"python": "", "sql": "SQL", "javascript": "JavaScript", "typescript": "TypeScript",
	"java": "", "golang": "", "rust": "", "scala": "", "c++": "C++", "c#": "C#",
	"bigquery": "BigQuery", "abap": "ABAP", "git": "", "github": "GitHub", "gitlab": "GitLab",
	"langchain": "LangChain", "crewai": "CrewAI", "pytorch": "PyTorch", "tensorflow": "TensorFlow",
	"hugging face": "", "aws": "AWS", "azure": "", "gcp": "GCP", "docker": "", "kubernetes": "",
	"terraform": "", "jenkins": "", "n8n": "", "mcp": "MCP", "power bi": "Power BI", "tableau": "",
	"excel": "", "teradata": "", "airflow": "", "kafka": "", "snowflake": "", "dbt": "dbt",
	"databricks": "", "synapse": "", "fastapi": "FastAPI", "django": "", "flask": "",
	"xgboost": "XGBoost", "optuna": "", "cloudformation": "CloudFormation", "cloudwatch": "CloudWatch",
	"s3": "S3", "lambda": "", "glue": "", "ecs": "ECS", "ecr": "ECR", "rds": "RDS", "vpc": "VPC",
	"alb": "ALB", "control-m": "Control-M", "jira": "", "confluence": "", "spark": "",
	"postgresql": "PostgreSQL", "mysql": "MySQL", "mongodb": "MongoDB", "redis": "", "linux": "",
	"react": "", "node.js": "Node.js", "graphql": "GraphQL", "microservices": "",
	"ci/cd": "CI/CD", "agile": "", "scrum": "", "kanban": "", "mlops": "MLOps", "devops": "DevOps",
	"pandas": "", "numpy": "NumPy", "scikit-learn": "", "ansible": "", "prometheus": "", "grafana": "",
}

type vocabularyTerm struct {
	display string
	re      *regexp.Regexp
}

var vocabularyTerms = buildVocabulary()

func buildVocabulary() []vocabularyTerm {
	terms := make([]vocabularyTerm, 0, len(vocabulary))
	for term, display := range vocabulary {
		if display == "" {
			display = titleCase(term)
		}
		terms = append(terms, vocabularyTerm{
			display: display,
			re:      regexp.MustCompile(`(?i)(?:^|[^\w+#])` + regexp.QuoteMeta(term) + `(?:$|[^\w+#])`),
		})
	}
	return terms
}

// ExtractVocabulary scans text for known technical terms and returns them in
// the order they first appear.
func ExtractVocabulary(text string) []string {
	type hit struct {
		pos     int
		display string
	}

	var hits []hit
	for _, term := range vocabularyTerms {
		if loc := term.re.FindStringIndex(text); loc != nil {
			hits = append(hits, hit{pos: loc[0], display: term.display})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].pos == hits[j].pos {
			return hits[i].display < hits[j].display
		}
		return hits[i].pos < hits[j].pos
	})

	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.display)
	}
	return out
}

func titleCase(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if upper {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteRune(r)
		}
		upper = r == ' ' || r == '-'
	}
	return b.String()
}
