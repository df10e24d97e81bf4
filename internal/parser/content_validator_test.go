package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentValidatorFlagsInventedMetrics(t *testing.T) {
	v := NewContentValidator()

	source := "负责订单系统开发，接口延迟下降40%。"
	generated := "负责订单系统开发，接口延迟下降40%，营收增长300%。"

	warnings := v.Validate(generated, source)
	require.Len(t, warnings, 1, "凭空出现的量化数据应被告警")
	assert.Equal(t, "metrics", warnings[0].Field)
	assert.Contains(t, warnings[0].Claim, "300%")
}

func TestContentValidatorFlagsInventedSkills(t *testing.T) {
	v := NewContentValidator()

	source := "熟悉Go和MySQL的后端工程师。"
	generated := "熟悉Go和MySQL的后端工程师，精通Kubernetes集群管理。"

	warnings := v.Validate(generated, source)
	require.NotEmpty(t, warnings)

	var found bool
	for _, w := range warnings {
		if w.Field == "skills" && w.Claim == "Kubernetes" {
			found = true
		}
	}
	assert.True(t, found, "源简历中不存在的技能应被告警")
}

func TestContentValidatorFlagsInventedEntities(t *testing.T) {
	v := NewContentValidator()

	source := "在一家互联网公司从事后端开发。"
	generated := "曾就职于 Google Cloud Platform 团队从事后端开发。"

	warnings := v.Validate(generated, source)

	var found bool
	for _, w := range warnings {
		if w.Field == "entities" {
			found = true
		}
	}
	assert.True(t, found, "源简历中不存在的实体名称应被告警")
}

func TestContentValidatorPassesFaithfulText(t *testing.T) {
	v := NewContentValidator()

	source := `熟悉Go和Redis。
- 接口延迟下降40%
- 在 Example Corp 负责支付系统`
	generated := "熟悉Go和Redis，接口延迟下降40%，在 Example Corp 负责支付系统。"

	warnings := v.Validate(generated, source)
	assert.Empty(t, warnings, "可溯源的内容不应产生告警")
}

func TestContentValidatorEmptyGenerated(t *testing.T) {
	v := NewContentValidator()

	assert.Nil(t, v.Validate("", "任意源文本"), "空的生成文本应直接返回nil")
}

func TestContentValidatorRespectsWarningLimit(t *testing.T) {
	v := NewContentValidator(WithMaxWarnings(2))

	source := "一段没有任何数字的源文本。"
	generated := "增长10%，增长20%，增长30%，增长40%，增长50%。"

	warnings := v.Validate(generated, source)
	assert.Len(t, warnings, 2, "告警数量应被上限截断")
}
