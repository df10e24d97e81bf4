package parser

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"

	"resume-optimizer/internal/types"
)

// jdSystemPrompt 岗位描述解析的系统提示词
const jdSystemPrompt = `你是一个专业的招聘信息解析专家。你将收到一段岗位描述文本，
请提取结构化信息并以JSON输出。

JSON输出格式规范:
{
  "title": "string",
  "company": "string",
  "location": "string",
  "work_mode": "string",
  "skills": ["string"],
  "requirements": ["string"],
  "responsibilities": ["string"]
}

重要指令:
- work_mode 取值: "remote"、"hybrid"、"onsite"，无法判断时留空。
- skills 按在文中出现的顺序列出，去重。
- 信息缺失时对应字段设为空字符串或空数组，请勿编造。
- 严格输出JSON，不要包含任何解释性文字或Markdown标记。

以下是一个示例:
输入:
"""
Senior Backend Engineer - Acme Corp (Remote)
We are looking for an engineer with strong Python and Kubernetes experience.
Responsibilities: design APIs, operate services.
Requirements: 5+ years of experience, fluency in Go or Python.
"""
输出:
{
  "title": "Senior Backend Engineer",
  "company": "Acme Corp",
  "location": "",
  "work_mode": "remote",
  "skills": ["Python", "Kubernetes", "Go"],
  "requirements": ["5+ years of experience", "fluency in Go or Python"],
  "responsibilities": ["design APIs", "operate services"]
}`

// knownTechTerms 关键词提取的技术词表。
// 匹配忽略大小写，输出使用这里的规范写法。
var knownTechTerms = []string{
	"Python", "Java", "Go", "Golang", "JavaScript", "TypeScript", "C++", "C#", "Rust",
	"Ruby", "PHP", "Swift", "Kotlin", "Scala", "SQL", "HTML", "CSS",
	"React", "Vue", "Angular", "Node.js", "Django", "Flask", "Spring", "Spring Boot",
	"Kubernetes", "Docker", "Terraform", "Ansible", "Jenkins", "Git", "CI/CD",
	"AWS", "GCP", "Azure", "Linux", "MySQL", "PostgreSQL", "MongoDB", "Redis",
	"Kafka", "RabbitMQ", "Elasticsearch", "Spark", "Hadoop", "TensorFlow", "PyTorch",
	"GraphQL", "REST", "gRPC", "Microservices", "Agile", "Scrum",
	"Machine Learning", "Deep Learning", "NLP", "Data Analysis",
}

// capitalizedTermRe 词表之外的候选专有名词
var capitalizedTermRe = regexp.MustCompile(`\b[A-Z][a-zA-Z+#.]{1,20}\b`)

// JDParser 岗位描述解析与关键词提取。
// 结构化解析走补全服务，关键词提取是确定性的词表+频次启发式。
// 岗位结构只是生成的参考输入，这一层的任何失败都不致命。
type JDParser struct {
	llmModel   model.ToolCallingChatModel
	maxRetries int
	timeout    time.Duration
	logger     *log.Logger
}

// JDParserOption 配置选项
type JDParserOption func(*JDParser)

// WithJDRetries 设置瞬时错误最大重试次数
func WithJDRetries(n int) JDParserOption {
	return func(p *JDParser) {
		p.maxRetries = n
	}
}

// WithJDTimeout 设置单次调用超时
func WithJDTimeout(d time.Duration) JDParserOption {
	return func(p *JDParser) {
		p.timeout = d
	}
}

// WithJDLogger 配置自定义日志记录器
func WithJDLogger(logger *log.Logger) JDParserOption {
	return func(p *JDParser) {
		p.logger = logger
	}
}

// NewJDParser 创建岗位描述解析器
func NewJDParser(llmModel model.ToolCallingChatModel, options ...JDParserOption) *JDParser {
	p := &JDParser{
		llmModel:   llmModel,
		maxRetries: 1,
		timeout:    45 * time.Second,
		logger:     log.New(io.Discard, "", 0),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// ParsePosting 解析岗位描述。失败时返回空JobPosting而不是错误，
// 调用方可以无条件继续。
func (p *JDParser) ParsePosting(ctx context.Context, jdText string) *types.JobPosting {
	empty := &types.JobPosting{}
	if strings.TrimSpace(jdText) == "" {
		return empty
	}

	messages := []*einoschema.Message{
		{Role: einoschema.System, Content: jdSystemPrompt},
		{Role: einoschema.User, Content: jdText},
	}

	response, err := generateWithRetry(ctx, p.llmModel, messages, p.maxRetries, p.timeout, p.logger)
	if err != nil {
		p.logger.Printf("岗位解析失败，使用空结果继续: %v", err)
		return empty
	}

	jsonStr := extractJSON(response.Content)
	if jsonStr == "" {
		p.logger.Printf("岗位解析响应中没有有效JSON，使用空结果继续")
		return empty
	}

	var posting types.JobPosting
	if err := json.Unmarshal([]byte(jsonStr), &posting); err != nil {
		p.logger.Printf("岗位解析JSON反序列化失败，使用空结果继续: %v", err)
		return empty
	}

	posting.Skills = dedupOrdered(posting.Skills)
	return &posting
}

// ExtractKeywords 从岗位描述提取有序去重的关键词列表。
// 先按词表命中并以频次排序，再补充高频的专有名词。完全确定性。
func (p *JDParser) ExtractKeywords(jdText string) []string {
	if strings.TrimSpace(jdText) == "" {
		return nil
	}

	lower := strings.ToLower(jdText)

	type hit struct {
		term  string
		count int
		first int
	}
	var hits []hit

	for _, term := range knownTechTerms {
		lt := strings.ToLower(term)
		count := countTermOccurrences(lower, lt)
		if count == 0 {
			continue
		}
		hits = append(hits, hit{term: term, count: count, first: strings.Index(lower, lt)})
	}

	// 频次降序，频次相同时按首次出现位置
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].count != hits[j].count {
			return hits[i].count > hits[j].count
		}
		return hits[i].first < hits[j].first
	})

	var keywords []string
	seen := make(map[string]bool)
	for _, h := range hits {
		key := strings.ToLower(h.term)
		if seen[key] {
			continue
		}
		// Go/Golang 这类别名只保留先出现的那个
		seen[key] = true
		keywords = append(keywords, h.term)
	}

	// 词表未覆盖的高频专有名词兜底补充
	counts := make(map[string]int)
	order := make(map[string]int)
	for i, m := range capitalizedTermRe.FindAllString(jdText, -1) {
		key := strings.ToLower(m)
		if seen[key] || isCommonWord(key) {
			continue
		}
		counts[m]++
		if _, ok := order[m]; !ok {
			order[m] = i
		}
	}
	var extra []string
	for term, count := range counts {
		if count >= 2 {
			extra = append(extra, term)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return order[extra[i]] < order[extra[j]] })
	for _, term := range extra {
		if !seen[strings.ToLower(term)] {
			seen[strings.ToLower(term)] = true
			keywords = append(keywords, term)
		}
	}

	return keywords
}

// countTermOccurrences 统计词项出现次数，要求词边界
func countTermOccurrences(lowerText string, lowerTerm string) int {
	count := 0
	for idx := 0; ; {
		i := strings.Index(lowerText[idx:], lowerTerm)
		if i == -1 {
			break
		}
		pos := idx + i
		if hasWordBoundary(lowerText, pos, len(lowerTerm)) {
			count++
		}
		idx = pos + len(lowerTerm)
	}
	return count
}

func hasWordBoundary(text string, pos int, length int) bool {
	before := pos == 0 || !isWordChar(text[pos-1])
	afterIdx := pos + length
	after := afterIdx >= len(text) || !isWordChar(text[afterIdx])
	return before && after
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// isCommonWord 排除句首大写的常见英文词
func isCommonWord(lower string) bool {
	common := map[string]bool{
		"the": true, "we": true, "our": true, "you": true, "your": true,
		"this": true, "that": true, "with": true, "for": true, "and": true,
		"requirements": true, "responsibilities": true, "about": true,
		"job": true, "role": true, "team": true, "company": true, "experience": true,
		"please": true, "apply": true, "work": true, "what": true, "who": true,
	}
	return common[lower]
}

// dedupOrdered 保序去重，忽略大小写
func dedupOrdered(items []string) []string {
	if len(items) == 0 {
		return items
	}
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}
