package types

import "strings"

// maxTreeDepth 遍历深度硬上限，防止畸形响应导致无界递归
const maxTreeDepth = 64

// Walk 深度优先遍历，visit返回false时跳过该节点的子树
func (t *DocumentTree) Walk(visit func(node *DocumentTree, depth int) bool) {
	if t == nil {
		return
	}
	t.walk(visit, 0)
}

func (t *DocumentTree) walk(visit func(node *DocumentTree, depth int) bool, depth int) {
	if depth > maxTreeDepth {
		return
	}
	if !visit(t, depth) {
		return
	}
	for _, child := range t.Children {
		if child != nil {
			child.walk(visit, depth+1)
		}
	}
}

// FlattenText 按文档顺序收集全部文本。
// 标题节点渲染为Markdown风格的#前缀行，其余叶子文本原样拼接。
func (t *DocumentTree) FlattenText() string {
	if t == nil {
		return ""
	}

	var sb strings.Builder
	t.Walk(func(node *DocumentTree, depth int) bool {
		content := strings.TrimSpace(node.Content)
		if content == "" {
			return true
		}
		switch node.Kind {
		case NodeHeader:
			level := node.Level
			if level < 1 {
				level = 1
			}
			if level > 6 {
				level = 6
			}
			sb.WriteString("\n")
			sb.WriteString(strings.Repeat("#", level))
			sb.WriteString(" ")
			sb.WriteString(content)
			sb.WriteString("\n")
		default:
			sb.WriteString(content)
			sb.WriteString("\n")
		}
		return true
	})

	return strings.TrimSpace(sb.String())
}

// Sanitize 规整一棵可能来自模型输出的树:
// 非header节点清除Level，header的Level收敛到1-6，未知kind降级为paragraph。
func (t *DocumentTree) Sanitize() {
	if t == nil {
		return
	}
	t.Walk(func(node *DocumentTree, depth int) bool {
		switch node.Kind {
		case NodeDocument, NodeSection, NodeParagraph, NodeList, NodeTable:
			node.Level = 0
		case NodeHeader:
			if node.Level < 1 {
				node.Level = 1
			}
			if node.Level > 6 {
				node.Level = 6
			}
		default:
			node.Kind = NodeParagraph
			node.Level = 0
		}
		return true
	})
}

// CountNodes 统计节点总数
func (t *DocumentTree) CountNodes() int {
	count := 0
	t.Walk(func(node *DocumentTree, depth int) bool {
		count++
		return true
	})
	return count
}

// Depth 返回树的最大深度，根节点深度为1
func (t *DocumentTree) Depth() int {
	max := 0
	t.Walk(func(node *DocumentTree, depth int) bool {
		if depth+1 > max {
			max = depth + 1
		}
		return true
	})
	return max
}
