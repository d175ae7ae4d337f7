package cv

import "strings"

// Position is an open role candidates are evaluated against.
type Position struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Requirements []string `json:"requirements"`
}

// RequirementsText joins the requirements one per line, as the evaluator expects.
func (p Position) RequirementsText() string {
	return strings.Join(p.Requirements, "\n")
}

// Positions is the built-in catalog. The first entry is the default.
var Positions = []Position{
	{
		ID:    "ai-ml-engineer",
		Title: "Mid-Level AI/ML Engineer",
		Requirements: []string{
			"Bachelor's or Master's degree in Computer Science, Data Science, Mathematics, or a related field.",
			"3–5 years of professional experience in AI/ML or data science.",
			"Strong proficiency in Python (NumPy, Pandas, Scikit-learn, PyTorch, TensorFlow, etc.).",
			"Experience with data preprocessing, feature engineering, and model deployment.",
			"Knowledge of classical ML algorithms (regression, clustering, tree-based methods, etc.) and deep learning.",
			"Hands-on experience with cloud platforms (AWS, GCP, or Azure).",
			"Familiarity with MLOps tools (MLflow, Kubeflow, Docker, Kubernetes, etc.).",
			"Solid understanding of software engineering practices (version control, testing, CI/CD).",
			"Strong problem-solving skills and the ability to work independently.",
		},
	},
	{
		ID:    "fullstack-developer",
		Title: "Full-Stack Developer",
		Requirements: []string{
			"Bachelor's degree in Computer Science or related field.",
			"3+ years of experience in full-stack web development.",
			"Proficiency in React, Node.js, and modern JavaScript/TypeScript.",
			"Experience with REST APIs and database design (SQL and NoSQL).",
			"Knowledge of cloud platforms (AWS, GCP, or Azure).",
			"Familiarity with CI/CD pipelines and DevOps practices.",
			"Strong understanding of web security and performance optimization.",
			"Excellent problem-solving and communication skills.",
		},
	},
	{
		ID:    "frontend-developer",
		Title: "Frontend Developer",
		Requirements: []string{
			"Bachelor's degree in Computer Science or related field.",
			"2+ years of experience in frontend development.",
			"Expert knowledge of React, Next.js, and modern CSS frameworks.",
			"Strong proficiency in TypeScript and JavaScript.",
			"Experience with state management (Redux, Zustand, or similar).",
			"Understanding of responsive design and accessibility standards.",
			"Familiarity with testing frameworks (Jest, React Testing Library).",
			"Portfolio demonstrating UI/UX design skills.",
		},
	},
	{
		ID:    "backend-developer",
		Title: "Backend Developer",
		Requirements: []string{
			"Bachelor's degree in Computer Science or related field.",
			"3+ years of experience in backend development.",
			"Strong proficiency in Node.js, Python, or Java.",
			"Experience with database design and optimization (PostgreSQL, MongoDB).",
			"Knowledge of microservices architecture and RESTful APIs.",
			"Familiarity with message queues (RabbitMQ, Kafka) and caching (Redis).",
			"Understanding of security best practices and authentication systems.",
			"Experience with Docker and container orchestration.",
		},
	},
	{
		ID:    "devops-engineer",
		Title: "DevOps Engineer",
		Requirements: []string{
			"Bachelor's degree in Computer Science or related field.",
			"3+ years of experience in DevOps or Site Reliability Engineering.",
			"Strong knowledge of AWS, GCP, or Azure cloud platforms.",
			"Experience with Infrastructure as Code (Terraform, CloudFormation).",
			"Proficiency in containerization (Docker) and orchestration (Kubernetes).",
			"Expertise in CI/CD pipelines (Jenkins, GitLab CI, GitHub Actions).",
			"Understanding of monitoring and logging tools (Prometheus, Grafana, ELK).",
			"Strong scripting skills (Bash, Python, or similar).",
		},
	},
}

// FindPosition returns the position with id.
func FindPosition(id string) (Position, bool) {
	for _, p := range Positions {
		if p.ID == id {
			return p, true
		}
	}
	return Position{}, false
}
