// Copyright © 2024 The ELPS authors

package syntax

// Kind classifies a syntax node.  The enumeration is closed; switches over
// Kind are expected to be exhaustive.
type Kind uint8

// Syntax node kinds.
const (
	KindInvalid Kind = iota

	KindChunk
	KindBlock

	// Statements
	KindLocalStat
	KindAssignStat
	KindFuncStat
	KindLocalFuncStat
	KindCallStat
	KindReturnStat
	KindIfStat
	KindElseIfClause
	KindElseClause
	KindWhileStat
	KindRepeatStat
	KindNumericForStat
	KindGenericForStat
	KindDoStat
	KindBreakStat
	KindGotoStat
	KindLabelStat

	// Expressions
	KindNameExpr
	KindIndexExpr
	KindCallExpr
	KindLiteralExpr
	KindTableExpr
	KindClosureExpr
	KindBinaryExpr
	KindUnaryExpr
	KindParenExpr

	// Auxiliary nodes
	KindLocalName
	KindParamList
	KindParamName
	KindArgList
	KindTableField

	// Doc comments
	KindComment
	KindDocDescription
	KindDocTagClass
	KindDocTagField
	KindDocTagType
	KindDocTagParam
	KindDocTagReturn
	KindDocTagOverload
	KindDocTagGeneric
	KindDocTagAlias
	KindDocTagEnum
	KindDocTagDeprecated
	KindDocTagReadonly
	KindDocTagNoDiscard
	KindDocTagAsync
	KindDocTagMeta
	KindDocTagVisibility
	KindDocTagVersion
	KindDocTagSource
	KindDocTagExport
	KindDocTagAttribute
	KindDocTagAttributeUse
	KindDocTagDiagnostic
	KindDocTagOther
	KindDocAttributeItem
	KindDocAttributeArg

	numKinds
)

var kindStrings = [numKinds]string{
	KindInvalid:            "Invalid",
	KindChunk:              "Chunk",
	KindBlock:              "Block",
	KindLocalStat:          "LocalStat",
	KindAssignStat:         "AssignStat",
	KindFuncStat:           "FuncStat",
	KindLocalFuncStat:      "LocalFuncStat",
	KindCallStat:           "CallStat",
	KindReturnStat:         "ReturnStat",
	KindIfStat:             "IfStat",
	KindElseIfClause:       "ElseIfClause",
	KindElseClause:         "ElseClause",
	KindWhileStat:          "WhileStat",
	KindRepeatStat:         "RepeatStat",
	KindNumericForStat:     "NumericForStat",
	KindGenericForStat:     "GenericForStat",
	KindDoStat:             "DoStat",
	KindBreakStat:          "BreakStat",
	KindGotoStat:           "GotoStat",
	KindLabelStat:          "LabelStat",
	KindNameExpr:           "NameExpr",
	KindIndexExpr:          "IndexExpr",
	KindCallExpr:           "CallExpr",
	KindLiteralExpr:        "LiteralExpr",
	KindTableExpr:          "TableExpr",
	KindClosureExpr:        "ClosureExpr",
	KindBinaryExpr:         "BinaryExpr",
	KindUnaryExpr:          "UnaryExpr",
	KindParenExpr:          "ParenExpr",
	KindLocalName:          "LocalName",
	KindParamList:          "ParamList",
	KindParamName:          "ParamName",
	KindArgList:            "ArgList",
	KindTableField:         "TableField",
	KindComment:            "Comment",
	KindDocDescription:     "DocDescription",
	KindDocTagClass:        "DocTagClass",
	KindDocTagField:        "DocTagField",
	KindDocTagType:         "DocTagType",
	KindDocTagParam:        "DocTagParam",
	KindDocTagReturn:       "DocTagReturn",
	KindDocTagOverload:     "DocTagOverload",
	KindDocTagGeneric:      "DocTagGeneric",
	KindDocTagAlias:        "DocTagAlias",
	KindDocTagEnum:         "DocTagEnum",
	KindDocTagDeprecated:   "DocTagDeprecated",
	KindDocTagReadonly:     "DocTagReadonly",
	KindDocTagNoDiscard:    "DocTagNoDiscard",
	KindDocTagAsync:        "DocTagAsync",
	KindDocTagMeta:         "DocTagMeta",
	KindDocTagVisibility:   "DocTagVisibility",
	KindDocTagVersion:      "DocTagVersion",
	KindDocTagSource:       "DocTagSource",
	KindDocTagExport:       "DocTagExport",
	KindDocTagAttribute:    "DocTagAttribute",
	KindDocTagAttributeUse: "DocTagAttributeUse",
	KindDocTagDiagnostic:   "DocTagDiagnostic",
	KindDocTagOther:        "DocTagOther",
	KindDocAttributeItem:   "DocAttributeItem",
	KindDocAttributeArg:    "DocAttributeArg",
}

func (k Kind) String() string {
	if k >= numKinds {
		return kindStrings[KindInvalid]
	}
	return kindStrings[k]
}

// IsStat reports whether k is a statement kind.
func (k Kind) IsStat() bool {
	return KindLocalStat <= k && k <= KindLabelStat
}

// IsExpr reports whether k is an expression kind.
func (k Kind) IsExpr() bool {
	return KindNameExpr <= k && k <= KindParenExpr
}

// IsDocTag reports whether k is a doc tag or doc description.
func (k Kind) IsDocTag() bool {
	return KindDocDescription <= k && k <= KindDocAttributeArg
}
