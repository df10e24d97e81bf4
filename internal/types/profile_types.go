package types

// NodeKind 文档结构树的节点类型
type NodeKind string

const (
	// NodeDocument 根节点
	NodeDocument NodeKind = "document"
	// NodeSection 章节节点
	NodeSection NodeKind = "section"
	// NodeHeader 标题节点（携带层级）
	NodeHeader NodeKind = "header"
	// NodeParagraph 段落节点
	NodeParagraph NodeKind = "paragraph"
	// NodeList 列表节点
	NodeList NodeKind = "list"
	// NodeTable 表格节点
	NodeTable NodeKind = "table"
)

// DocumentTree 视觉结构分析恢复出的层级文档树
// 只有 header 节点携带 Level (1-6)，叶子节点通过 Content 携带文本
type DocumentTree struct {
	Kind     NodeKind        `json:"kind"`
	Level    int             `json:"level,omitempty"`
	Content  string          `json:"content,omitempty"`
	Children []*DocumentTree `json:"children,omitempty"`
}

// ParsedArtifact 全部提取策略针对单份文档产出的联合体
// Text 在解析成功时必然非空，其余字段尽力而为
type ParsedArtifact struct {
	// 最佳可用纯文本
	Text string

	// OCR路径得到的文本（可选）
	OCRText string

	// 页面渲染图（按页序，可选）
	Images [][]byte

	// 结构树（可选）
	Structure *DocumentTree

	// 各策略附带的元数据
	Metadata map[string]interface{}
}

// SectionKey 规范化章节名，受控词汇表
type SectionKey string

const (
	// SectionSummary 个人概述
	SectionSummary SectionKey = "SUMMARY"
	// SectionExperience 工作经历
	SectionExperience SectionKey = "EXPERIENCE"
	// SectionEducation 教育经历
	SectionEducation SectionKey = "EDUCATION"
	// SectionSkills 技能
	SectionSkills SectionKey = "SKILLS"
	// SectionProjects 项目经历
	SectionProjects SectionKey = "PROJECTS"
	// SectionCertifications 证书
	SectionCertifications SectionKey = "CERTIFICATIONS"
	// SectionAwards 获奖情况
	SectionAwards SectionKey = "AWARDS"
	// SectionLanguages 语言能力
	SectionLanguages SectionKey = "LANGUAGES"
	// SectionOther 无法归类内容的兜底章节，未识别的内容保留于此而不是丢弃
	SectionOther SectionKey = "OTHER"
)

// NormalizedProfile 规范化后的候选人画像
// 由Normalizer创建，仅AI清洗阶段做文本级修复，此后只读
type NormalizedProfile struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Location string `json:"location,omitempty"`

	// 规范章节名到章节正文的映射
	Sections map[SectionKey]string `json:"sections"`
}

// SectionOrDefault 返回指定章节正文，章节缺失时返回兜底内容
func (p *NormalizedProfile) SectionOrDefault(key SectionKey) string {
	if p == nil || p.Sections == nil {
		return ""
	}
	if body, ok := p.Sections[key]; ok && body != "" {
		return body
	}
	return p.Sections[SectionOther]
}

// FullText 按固定章节顺序拼接画像的全部正文
func (p *NormalizedProfile) FullText() string {
	if p == nil || len(p.Sections) == 0 {
		return ""
	}
	order := []SectionKey{
		SectionSummary, SectionExperience, SectionEducation, SectionSkills,
		SectionProjects, SectionCertifications, SectionAwards, SectionLanguages, SectionOther,
	}
	out := ""
	for _, key := range order {
		if body, ok := p.Sections[key]; ok && body != "" {
			if out != "" {
				out += "\n\n"
			}
			out += string(key) + "\n" + body
		}
	}
	return out
}

// JobPosting 解析后的目标岗位
type JobPosting struct {
	Title            string   `json:"title,omitempty"`
	Company          string   `json:"company,omitempty"`
	Location         string   `json:"location,omitempty"`
	WorkMode         string   `json:"work_mode,omitempty"`
	Skills           []string `json:"skills,omitempty"`
	Requirements     []string `json:"requirements,omitempty"`
	Responsibilities []string `json:"responsibilities,omitempty"`
}

// ExperienceEstimate 从日期区间推导的经验年限，作为生成阶段的事实锚点
// 只在生成之前计算一次，绝不从生成结果反推
type ExperienceEstimate struct {
	// 总年限，可为小数
	TotalYears float64 `json:"total_years"`

	// 推导过程的人类可读说明
	Details string `json:"details"`

	// 注入提示词的硬约束，如年限不足时禁用Senior措辞
	Constraints []string `json:"constraints,omitempty"`
}

// CategoryScore 单个评分维度的得分与上限
type CategoryScore struct {
	Score int `json:"score"`
	Max   int `json:"max"`
}

// ResumeScore 规则化的ATS友好度评分
type ResumeScore struct {
	// 0-100
	Score int `json:"score"`

	// 由分数阈值映射的等级
	Grade string `json:"grade"`

	// 各维度得分，总和等于Score
	Breakdown map[string]CategoryScore `json:"breakdown"`
}

// ContentWarning 内容校验器产出的告警（仅记录，不阻断）
type ContentWarning struct {
	Field  string `json:"field"`
	Claim  string `json:"claim"`
	Reason string `json:"reason"`
}

// OptimizeResult 流水线的最终出参
type OptimizeResult struct {
	RequestUUID string `json:"request_uuid"`

	// 生成的简历文本
	ResumeText string `json:"resume_text"`

	// 可选的求职信
	CoverLetter string `json:"cover_letter,omitempty"`

	// 联系方式等画像字段，供下游渲染联系块
	Profile *NormalizedProfile `json:"profile"`

	// 源简历与生成简历各自的评分
	SourceScore    *ResumeScore `json:"source_score,omitempty"`
	GeneratedScore *ResumeScore `json:"generated_score,omitempty"`

	// 经验年限锚点
	Experience *ExperienceEstimate `json:"experience,omitempty"`

	// 岗位解析结果与关键词
	Posting  *JobPosting `json:"posting,omitempty"`
	Keywords []string    `json:"keywords,omitempty"`

	// 内容校验告警
	Warnings []ContentWarning `json:"warnings,omitempty"`

	// 是否命中缓存
	Cached bool `json:"cached"`

	// 缓存键，便于下游关联任务记录
	Fingerprint string `json:"fingerprint,omitempty"`
}
