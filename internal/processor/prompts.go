package processor

import (
	"fmt"
	"strings"

	"resume-optimizer/internal/types"
)

// resumeSystemPrompt 简历优化生成的系统提示词
const resumeSystemPrompt = `你是一个专业的简历优化专家，擅长为目标岗位改写简历并确保通过ATS筛选。

核心任务:
1. 以源简历为唯一事实来源，针对目标岗位重写内容，使其更匹配、更有说服力。
2. 自然地融入给定的ATS关键词，仅限源简历能支撑的技能。
3. 工作经历条目改写为行为动词开头、尽量带量化结果的要点。
4. 输出完整的Markdown格式简历: 姓名与联系方式在最上方，之后依序为概述、工作经历、教育背景、技能等章节。

重要指令:
- 严禁编造: 不得新增源简历中不存在的雇主、职位、时间、学历、证书或技能。
- 严禁使用任何方括号占位符(如[Company Name])，信息缺失就省略对应内容。
- 遵守给出的每一条经验年限约束，不得夸大资历。
- 输出语言与源简历一致。
- 直接输出简历正文，不要包含任何解释。`

// coverLetterSystemPrompt 求职信生成的系统提示词
const coverLetterSystemPrompt = `你是一个专业的求职信写作专家。

核心任务: 依据优化后的简历与目标岗位，写一封简洁有力的求职信(200-350词)。

重要指令:
- 只引用简历中真实存在的经历与技能。
- 严禁使用任何方括号占位符; 收件人不明时使用"Dear Hiring Manager"这样的通用抬头，不要写"[Hiring Manager Name]"。
- 输出语言与简历一致。
- 直接输出正文，不要包含任何解释。`

// buildResumeUserPrompt 组装生成阶段的用户提示词
func buildResumeUserPrompt(input *GenerationInput) string {
	var sb strings.Builder

	sb.WriteString("## 源简历\n\n")
	sb.WriteString("联系方式:\n")
	writeContactBlock(&sb, input.Profile)
	sb.WriteString("\n正文:\n")
	sb.WriteString(input.Profile.FullText())
	sb.WriteString("\n\n")

	if input.Experience != nil {
		fmt.Fprintf(&sb, "## 经验年限(事实锚点)\n总年限: %.1f年\n推导: %s\n",
			input.Experience.TotalYears, input.Experience.Details)
		if len(input.Experience.Constraints) > 0 {
			sb.WriteString("硬约束:\n")
			for _, c := range input.Experience.Constraints {
				sb.WriteString("- " + c + "\n")
			}
		}
		sb.WriteString("\n")
	}

	if input.Posting != nil && (input.Posting.Title != "" || len(input.Posting.Skills) > 0) {
		sb.WriteString("## 目标岗位\n")
		if input.Posting.Title != "" {
			fmt.Fprintf(&sb, "职位: %s\n", input.Posting.Title)
		}
		if input.Posting.Company != "" {
			fmt.Fprintf(&sb, "公司: %s\n", input.Posting.Company)
		}
		if len(input.Posting.Requirements) > 0 {
			sb.WriteString("要求:\n")
			for _, r := range input.Posting.Requirements {
				sb.WriteString("- " + r + "\n")
			}
		}
		if len(input.Posting.Responsibilities) > 0 {
			sb.WriteString("职责:\n")
			for _, r := range input.Posting.Responsibilities {
				sb.WriteString("- " + r + "\n")
			}
		}
		sb.WriteString("\n")
	} else if strings.TrimSpace(input.JobDescription) != "" {
		sb.WriteString("## 目标岗位描述(原文)\n")
		sb.WriteString(input.JobDescription)
		sb.WriteString("\n\n")
	}

	if len(input.Keywords) > 0 {
		sb.WriteString("## ATS关键词\n")
		sb.WriteString(strings.Join(input.Keywords, ", "))
		sb.WriteString("\n\n")
	}

	sb.WriteString("请输出优化后的完整简历。")
	return sb.String()
}

// buildCoverLetterUserPrompt 组装求职信的用户提示词
func buildCoverLetterUserPrompt(input *GenerationInput, resumeText string) string {
	var sb strings.Builder

	sb.WriteString("## 优化后的简历\n\n")
	sb.WriteString(resumeText)
	sb.WriteString("\n\n")

	if input.Posting != nil && input.Posting.Title != "" {
		fmt.Fprintf(&sb, "## 目标岗位\n%s", input.Posting.Title)
		if input.Posting.Company != "" {
			fmt.Fprintf(&sb, " @ %s", input.Posting.Company)
		}
		sb.WriteString("\n\n")
	} else if strings.TrimSpace(input.JobDescription) != "" {
		sb.WriteString("## 目标岗位描述(原文)\n")
		sb.WriteString(input.JobDescription)
		sb.WriteString("\n\n")
	}

	sb.WriteString("请输出求职信正文。")
	return sb.String()
}

func writeContactBlock(sb *strings.Builder, profile *types.NormalizedProfile) {
	if profile == nil {
		return
	}
	if profile.Name != "" {
		fmt.Fprintf(sb, "- 姓名: %s\n", profile.Name)
	}
	if profile.Email != "" {
		fmt.Fprintf(sb, "- 邮箱: %s\n", profile.Email)
	}
	if profile.Phone != "" {
		fmt.Fprintf(sb, "- 电话: %s\n", profile.Phone)
	}
	if profile.LinkedIn != "" {
		fmt.Fprintf(sb, "- LinkedIn: %s\n", profile.LinkedIn)
	}
	if profile.Location != "" {
		fmt.Fprintf(sb, "- 所在地: %s\n", profile.Location)
	}
}
