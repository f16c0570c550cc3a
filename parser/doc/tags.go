// Copyright © 2024 The ELPS authors

package doc

import (
	"fmt"
	"strings"

	"github.com/luthersystems/emmylua/luatype"
	"github.com/luthersystems/emmylua/parser/token"
	"github.com/luthersystems/emmylua/syntax"
)

const docPrefix = "---"

var visibilities = map[string]bool{
	"public":    true,
	"private":   true,
	"protected": true,
	"package":   true,
}

// line is the text of one doc comment line following the --- prefix.
type line struct {
	tok  *token.Token
	text string
}

// pos returns the position of byte offset off within the line text.
func (l *line) pos(off int) syntax.Position {
	off += len(docPrefix)
	return syntax.Position{
		Offset: l.tok.Source.Pos + off,
		Line:   l.tok.Source.Line,
		Col:    l.tok.Source.Col + off,
	}
}

func (l *line) rng() syntax.Range {
	return syntax.Range{Start: l.pos(-len(docPrefix)), End: l.pos(len(l.text))}
}

func (l *line) subrange(off, n int) syntax.Range {
	return syntax.Range{Start: l.pos(off), End: l.pos(off + n)}
}

// ParseComment builds a Comment node from a group of consecutive
// DOC_COMMENT tokens.  Malformed tags become DocTagOther nodes and are
// reported as errors.
func ParseComment(toks []*token.Token, attached bool) (*syntax.Node, []*syntax.Error) {
	var nodes []*syntax.Node
	var errs []*syntax.Error
	for i := 0; i < len(toks); i++ {
		l := &line{tok: toks[i], text: strings.TrimPrefix(toks[i].Text, docPrefix)}
		trimmed := strings.TrimSpace(l.text)
		if !strings.HasPrefix(trimmed, "@") {
			if strings.HasPrefix(trimmed, "|") && len(nodes) > 0 && nodes[len(nodes)-1].Kind() == syntax.KindDocTagAlias {
				nodes[len(nodes)-1] = extendAlias(nodes[len(nodes)-1], l, trimmed[1:])
				continue
			}
			nodes = append(nodes, syntax.New(syntax.KindDocDescription, l.rng(), trimmed, nil))
			continue
		}
		node, err := parseTag(l)
		if err != nil {
			errs = append(errs, &syntax.Error{Range: l.rng(), Msg: err.Error()})
		}
		nodes = append(nodes, node)
	}
	rng := syntax.Range{}
	if len(toks) > 0 {
		first := &line{tok: toks[0], text: strings.TrimPrefix(toks[0].Text, docPrefix)}
		last := &line{tok: toks[len(toks)-1], text: strings.TrimPrefix(toks[len(toks)-1].Text, docPrefix)}
		rng = syntax.Range{Start: first.rng().Start, End: last.rng().End}
	}
	return syntax.New(syntax.KindComment, rng, "", syntax.CommentInfo{Attached: attached}, nodes...), errs
}

func parseTag(l *line) (*syntax.Node, error) {
	at := strings.IndexByte(l.text, '@')
	rest := l.text[at+1:]
	if strings.HasPrefix(rest, "[") {
		return parseAttributeUse(l, at+1)
	}
	tag, content := splitWord(rest)
	node := func(kind syntax.Kind, payload any) *syntax.Node {
		return syntax.New(kind, l.rng(), tag, payload)
	}
	other := func(err error) (*syntax.Node, error) {
		return node(syntax.KindDocTagOther, syntax.DocOther{Tag: tag, Content: content}), fmt.Errorf("@%s: %w", tag, err)
	}
	switch tag {
	case "class":
		class, err := parseClass(content)
		if err != nil {
			return other(err)
		}
		return node(syntax.KindDocTagClass, class), nil
	case "field":
		field, err := parseField(content)
		if err != nil {
			return other(err)
		}
		return node(syntax.KindDocTagField, field), nil
	case "type":
		types, _, err := ParseTypeList(content)
		if err != nil {
			return other(err)
		}
		return node(syntax.KindDocTagType, syntax.DocType{Types: types}), nil
	case "param":
		param, err := parseParam(content)
		if err != nil {
			return other(err)
		}
		return node(syntax.KindDocTagParam, param), nil
	case "return":
		types, rest, err := ParseTypeList(content)
		if err != nil {
			return other(err)
		}
		return node(syntax.KindDocTagReturn, syntax.DocReturn{Types: types, Description: description(rest)}), nil
	case "overload":
		t, _, err := ParseType(content)
		if err != nil {
			return other(err)
		}
		f, ok := t.(*luatype.FunctionType)
		if !ok {
			return other(fmt.Errorf("expected function type"))
		}
		return node(syntax.KindDocTagOverload, syntax.DocOverload{Func: f}), nil
	case "generic":
		params, err := parseGeneric(content)
		if err != nil {
			return other(err)
		}
		return node(syntax.KindDocTagGeneric, syntax.DocGeneric{Params: params}), nil
	case "alias":
		name, typeText := splitWord(content)
		if name == "" {
			return other(fmt.Errorf("missing alias name"))
		}
		alias := syntax.DocAlias{Name: name}
		if strings.TrimSpace(typeText) != "" {
			t, _, err := ParseType(typeText)
			if err != nil {
				return other(err)
			}
			alias.Type = t
		}
		return node(syntax.KindDocTagAlias, alias), nil
	case "enum":
		enum := syntax.DocEnum{}
		if strings.HasPrefix(content, "(key)") {
			enum.Key = true
			content = strings.TrimSpace(strings.TrimPrefix(content, "(key)"))
		}
		enum.Name, _ = splitWord(content)
		if enum.Name == "" {
			return other(fmt.Errorf("missing enum name"))
		}
		return node(syntax.KindDocTagEnum, enum), nil
	case "deprecated":
		return node(syntax.KindDocTagDeprecated, syntax.DocDeprecated{Message: content}), nil
	case "readonly":
		return node(syntax.KindDocTagReadonly, nil), nil
	case "nodiscard":
		return node(syntax.KindDocTagNoDiscard, nil), nil
	case "async":
		return node(syntax.KindDocTagAsync, nil), nil
	case "meta":
		return node(syntax.KindDocTagMeta, nil), nil
	case "public", "private", "protected", "package":
		return node(syntax.KindDocTagVisibility, syntax.DocVisibility{Visibility: tag}), nil
	case "version":
		var conds []string
		for _, c := range strings.Split(content, ",") {
			if c = strings.TrimSpace(c); c != "" {
				conds = append(conds, c)
			}
		}
		return node(syntax.KindDocTagVersion, syntax.DocVersion{Conds: conds}), nil
	case "source":
		return node(syntax.KindDocTagSource, syntax.DocSource{Source: content}), nil
	case "export":
		scope, _ := splitWord(content)
		if scope == "" {
			scope = "global"
		}
		if scope != "global" && scope != "namespace" {
			return other(fmt.Errorf("unknown export scope %q", scope))
		}
		return node(syntax.KindDocTagExport, syntax.DocExport{Scope: scope}), nil
	case "attribute":
		attr, err := parseAttribute(content)
		if err != nil {
			return other(err)
		}
		return node(syntax.KindDocTagAttribute, attr), nil
	case "diagnostic":
		return node(syntax.KindDocTagDiagnostic, parseDiagnostic(content)), nil
	}
	return node(syntax.KindDocTagOther, syntax.DocOther{Tag: tag, Content: content}), nil
}

func parseAttributeUse(l *line, off int) (*syntax.Node, error) {
	items, err := ParseAttributeUse(l.text[off:])
	var children []*syntax.Node
	for _, item := range items {
		var args []*syntax.Node
		for _, arg := range item.Args {
			args = append(args, syntax.New(syntax.KindDocAttributeArg,
				l.subrange(off+arg.Offset, arg.Len), arg.Literal.Raw, arg.Literal))
		}
		children = append(children, syntax.New(syntax.KindDocAttributeItem,
			l.subrange(off+item.Offset, item.Len), item.Name,
			syntax.DocAttributeItem{Name: item.Name}, args...))
	}
	node := syntax.New(syntax.KindDocTagAttributeUse, l.rng(), "[", nil, children...)
	if err != nil {
		return node, fmt.Errorf("@[: %w", err)
	}
	return node, nil
}

func extendAlias(alias *syntax.Node, l *line, text string) *syntax.Node {
	payload, _ := alias.Payload().(syntax.DocAlias)
	t, _, err := ParseType(text)
	if err != nil {
		return alias
	}
	if payload.Type == nil {
		payload.Type = t
	} else {
		payload.Type = luatype.NewUnion(payload.Type, t)
	}
	rng := syntax.Range{Start: alias.Range().Start, End: l.rng().End}
	return syntax.New(syntax.KindDocTagAlias, rng, alias.Text(), payload)
}

func parseClass(content string) (syntax.DocClass, error) {
	var class syntax.DocClass
	content = skipModifiers(content)
	head, supers, hasSupers := strings.Cut(content, ":")
	name, rest := splitName(head)
	if name == "" {
		return class, fmt.Errorf("missing class name")
	}
	class.Name = name
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "<") {
		end := strings.IndexByte(rest, '>')
		if end < 0 {
			return class, fmt.Errorf("unterminated generic parameter list")
		}
		for _, g := range strings.Split(rest[1:end], ",") {
			if g = strings.TrimSpace(g); g != "" {
				class.Generics = append(class.Generics, g)
			}
		}
	}
	if hasSupers && strings.TrimSpace(supers) != "" {
		types, _, err := ParseTypeList(supers)
		if err != nil {
			return class, err
		}
		class.Supers = types
	}
	return class, nil
}

func parseField(content string) (syntax.DocField, error) {
	var field syntax.DocField
	word, rest := splitWord(content)
	if visibilities[word] {
		field.Visibility = word
		content = rest
	}
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "[") {
		end := strings.IndexByte(content, ']')
		if end < 0 {
			return field, fmt.Errorf("unterminated field key")
		}
		key, _, err := ParseType(content[1:end])
		if err != nil {
			return field, err
		}
		field.Key = key
		content = content[end+1:]
	} else {
		name, rest := splitName(content)
		if name == "" {
			return field, fmt.Errorf("missing field name")
		}
		field.Name = name
		content = rest
	}
	if strings.HasPrefix(content, "?") {
		field.Optional = true
		content = content[1:]
	}
	t, rest, err := ParseType(content)
	if err != nil {
		return field, err
	}
	if field.Optional {
		t = luatype.NewUnion(t, luatype.Nil)
	}
	field.Type = t
	field.Description = description(rest)
	return field, nil
}

func parseParam(content string) (syntax.DocParam, error) {
	var param syntax.DocParam
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, luatype.VariadicName) {
		param.Name = luatype.VariadicName
		content = content[len(luatype.VariadicName):]
	} else {
		param.Name, content = splitName(content)
	}
	if param.Name == "" {
		return param, fmt.Errorf("missing parameter name")
	}
	if strings.HasPrefix(content, "?") {
		param.Optional = true
		content = content[1:]
	}
	t, rest, err := ParseType(content)
	if err != nil {
		return param, err
	}
	if param.Optional {
		t = luatype.NewUnion(t, luatype.Nil)
	}
	param.Type = t
	param.Description = description(rest)
	return param, nil
}

func parseGeneric(content string) ([]luatype.GenericParam, error) {
	var params []luatype.GenericParam
	for _, part := range strings.Split(content, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, constraint, hasConstraint := strings.Cut(part, ":")
		p := luatype.GenericParam{Name: strings.TrimSpace(name)}
		if strings.HasSuffix(p.Name, luatype.VariadicName) {
			p.Variadic = true
			p.Name = strings.TrimSuffix(p.Name, luatype.VariadicName)
		}
		if p.Name == "" {
			return params, fmt.Errorf("missing generic name")
		}
		if hasConstraint {
			t, _, err := ParseType(constraint)
			if err != nil {
				return params, err
			}
			p.Constraint = t
		}
		params = append(params, p)
	}
	if len(params) == 0 {
		return nil, fmt.Errorf("missing generic name")
	}
	return params, nil
}

func parseAttribute(content string) (syntax.DocAttribute, error) {
	var attr syntax.DocAttribute
	name, rest := splitName(content)
	if name == "" {
		return attr, fmt.Errorf("missing attribute name")
	}
	attr.Name = name
	if strings.HasPrefix(strings.TrimSpace(rest), "(") {
		params, _, err := ParseParams(strings.TrimSpace(rest))
		if err != nil {
			return attr, err
		}
		attr.Params = params
	}
	return attr, nil
}

func parseDiagnostic(content string) syntax.DocDiagnostic {
	action, codes, _ := strings.Cut(content, ":")
	diag := syntax.DocDiagnostic{Action: strings.TrimSpace(action)}
	for _, c := range strings.Split(codes, ",") {
		if c = strings.TrimSpace(c); c != "" {
			diag.Codes = append(diag.Codes, c)
		}
	}
	return diag
}

// skipModifiers removes a leading parenthesized modifier list such as
// (partial) or (exact).
func skipModifiers(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") {
		return s
	}
	end := strings.IndexByte(s, ')')
	if end < 0 {
		return s
	}
	return strings.TrimSpace(s[end+1:])
}

// splitWord splits s into its first whitespace delimited word and the rest.
func splitWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i+1:])
}

// splitName splits a leading identifier, possibly dotted, from s.
func splitName(s string) (string, string) {
	s = strings.TrimLeft(s, " \t")
	i := 0
	for i < len(s) && isNameByte(s[i], i == 0) {
		i++
	}
	return s[:i], s[i:]
}

func isNameByte(c byte, first bool) bool {
	switch {
	case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		return true
	case '0' <= c && c <= '9', c == '.':
		return !first
	}
	return false
}

func description(rest string) string {
	rest = strings.TrimSpace(rest)
	rest = strings.TrimPrefix(rest, "@")
	rest = strings.TrimPrefix(rest, "#")
	return strings.TrimSpace(rest)
}
