// Package variant 根据商品选项与已枚举的变体解析用户选择
package variant

import "strings"

// Choice 选项的一个可选值
type Choice struct {
	Value string `json:"value"`
}

// Option 商品选项，如 Color
type Option struct {
	Name    string   `json:"name"`
	Choices []Choice `json:"choices"`
}

// Variant 一个具体的选项组合
type Variant struct {
	ID      string            `json:"id"`
	Choices map[string]string `json:"choices"`
	InStock bool              `json:"in_stock"`
}

// Selection 选项名到已选值
type Selection map[string]string

// RawChoice 平台返回的选项值，字段可能缺失
type RawChoice struct {
	Value       *string `json:"value,omitempty"`
	Description *string `json:"description,omitempty"`
}

// RawOption 平台返回的选项
type RawOption struct {
	Name    *string     `json:"name,omitempty"`
	Choices []RawChoice `json:"choices,omitempty"`
}

// RawVariant 平台返回的变体
type RawVariant struct {
	ID      *string           `json:"id,omitempty"`
	Choices map[string]string `json:"choices,omitempty"`
	Stock   *RawStock         `json:"stock,omitempty"`
}

// RawStock 变体库存信息
type RawStock struct {
	InStock *bool `json:"inStock,omitempty"`
}

// NormalizeOptions 丢弃无名选项、空值与无可选值的选项；同名选项保留第一个
func NormalizeOptions(raw []RawOption) []Option {
	out := make([]Option, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, item := range raw {
		if item.Name == nil {
			continue
		}
		name := strings.TrimSpace(*item.Name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		choices := make([]Choice, 0, len(item.Choices))
		for _, c := range item.Choices {
			if c.Value == nil || strings.TrimSpace(*c.Value) == "" {
				continue
			}
			choices = append(choices, Choice{Value: *c.Value})
		}
		if len(choices) == 0 {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, Option{Name: name, Choices: choices})
	}
	return out
}

// NormalizeVariants 丢弃缺少 id 或组合的变体；未显式标记缺货即视为有货
func NormalizeVariants(raw []RawVariant) []Variant {
	out := make([]Variant, 0, len(raw))
	for _, item := range raw {
		if item.ID == nil || strings.TrimSpace(*item.ID) == "" || item.Choices == nil {
			continue
		}
		inStock := true
		if item.Stock != nil && item.Stock.InStock != nil && !*item.Stock.InStock {
			inStock = false
		}
		choices := make(map[string]string, len(item.Choices))
		for k, v := range item.Choices {
			choices[k] = v
		}
		out = append(out, Variant{ID: *item.ID, Choices: choices, InStock: inStock})
	}
	return out
}

// Resolver 单个商品的变体解析器，创建后只读
type Resolver struct {
	options  []Option
	variants []Variant
}

// New 由已归一化的选项与变体创建解析器
func New(options []Option, variants []Variant) *Resolver {
	return &Resolver{options: options, variants: variants}
}

// Options 返回选项
func (r *Resolver) Options() []Option {
	return r.options
}

// Variants 返回变体
func (r *Resolver) Variants() []Variant {
	return r.variants
}

// HasOptions 商品是否声明了选项
func (r *Resolver) HasOptions() bool {
	return len(r.options) > 0
}

// DefaultSelection 每个选项取第一个值
func (r *Resolver) DefaultSelection() Selection {
	sel := make(Selection, len(r.options))
	for _, opt := range r.options {
		sel[opt.Name] = opt.Choices[0].Value
	}
	return sel
}

// AllOptionsSelected 每个选项都有非空选择；无选项时恒为 true
func (r *Resolver) AllOptionsSelected(sel Selection) bool {
	for _, opt := range r.options {
		if sel[opt.Name] == "" {
			return false
		}
	}
	return true
}

// MatchedVariant 返回所有选项都一致的第一个变体；无选项时返回 nil
func (r *Resolver) MatchedVariant(sel Selection) *Variant {
	if !r.HasOptions() {
		return nil
	}
	for i := range r.variants {
		v := &r.variants[i]
		matched := true
		for _, opt := range r.options {
			if v.Choices[opt.Name] != sel[opt.Name] {
				matched = false
				break
			}
		}
		if matched {
			return v
		}
	}
	return nil
}

// Available 假设把 optionName 改为 candidate 后，是否仍存在有货变体
func (r *Resolver) Available(optionName, candidate string, sel Selection) bool {
	if len(r.variants) == 0 {
		return true
	}
	merged := make(Selection, len(sel)+1)
	for k, v := range sel {
		merged[k] = v
	}
	merged[optionName] = candidate

	for _, v := range r.variants {
		if !v.InStock {
			continue
		}
		agrees := true
		for _, opt := range r.options {
			want := merged[opt.Name]
			if want != "" && v.Choices[opt.Name] != want {
				agrees = false
				break
			}
		}
		if agrees {
			return true
		}
	}
	return false
}

// AvailabilityMap 每个选项值的可用性
func (r *Resolver) AvailabilityMap(sel Selection) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(r.options))
	for _, opt := range r.options {
		row := make(map[string]bool, len(opt.Choices))
		for _, c := range opt.Choices {
			row[c.Value] = r.Available(opt.Name, c.Value, sel)
		}
		out[opt.Name] = row
	}
	return out
}

// EffectiveInStock 当前选择是否可下单
// 只有命中缺货变体时为 false；未枚举的组合交由平台按原始选项判断
func (r *Resolver) EffectiveInStock(sel Selection) bool {
	if !r.HasOptions() {
		return true
	}
	matched := r.MatchedVariant(sel)
	return matched == nil || matched.InStock
}

// Resolution 某个选择的完整解析结果
type Resolution struct {
	Selection          Selection                  `json:"selection"`
	AllOptionsSelected bool                       `json:"all_options_selected"`
	VariantID          string                     `json:"variant_id,omitempty"`
	InStock            bool                       `json:"in_stock"`
	Availability       map[string]map[string]bool `json:"availability"`
}

// Resolve 汇总当前选择的解析结果
func (r *Resolver) Resolve(sel Selection) Resolution {
	if sel == nil {
		sel = Selection{}
	}
	res := Resolution{
		Selection:          sel,
		AllOptionsSelected: r.AllOptionsSelected(sel),
		InStock:            r.EffectiveInStock(sel),
		Availability:       r.AvailabilityMap(sel),
	}
	if matched := r.MatchedVariant(sel); matched != nil {
		res.VariantID = matched.ID
	}
	return res
}
