// Copyright © 2024 The ELPS authors

package syntax

import "github.com/luthersystems/emmylua/luatype"

// Doc tag payloads.  The parser attaches one of these to every doc tag node
// of the corresponding kind.

// DocClass is the payload of ---@class Name<T>: Super.
type DocClass struct {
	Name     string
	Generics []string
	Supers   []luatype.Type
}

// DocField is the payload of ---@field [visibility] name[?] type [desc].
// Key is set instead of Name for indexed fields, ---@field [string] T.
type DocField struct {
	Visibility  string
	Name        string
	Key         luatype.Type
	Optional    bool
	Type        luatype.Type
	Description string
}

// DocType is the payload of ---@type T[, U].
type DocType struct {
	Types []luatype.Type
}

// DocParam is the payload of ---@param name[?] type [desc].
type DocParam struct {
	Name        string
	Optional    bool
	Type        luatype.Type
	Description string
}

// DocReturn is the payload of ---@return T [name] [desc].
type DocReturn struct {
	Types       []luatype.Type
	Description string
}

// DocOverload is the payload of ---@overload fun(...).
type DocOverload struct {
	Func *luatype.FunctionType
}

// DocGeneric is the payload of ---@generic T: C, ...
type DocGeneric struct {
	Params []luatype.GenericParam
}

// DocAlias is the payload of ---@alias Name Type.
type DocAlias struct {
	Name string
	Type luatype.Type
}

// DocEnum is the payload of ---@enum Name.
type DocEnum struct {
	Name string
	Key  bool
}

// DocDeprecated is the payload of ---@deprecated [message].
type DocDeprecated struct {
	Message string
}

// DocVisibility is the payload of ---@private, ---@protected, ---@public and
// ---@package.
type DocVisibility struct {
	Visibility string
}

// DocVersion is the payload of ---@version 5.1, >5.3.
type DocVersion struct {
	Conds []string
}

// DocSource is the payload of ---@source path.
type DocSource struct {
	Source string
}

// DocExport is the payload of ---@export [global|namespace].
type DocExport struct {
	Scope string
}

// DocAttribute is the payload of ---@attribute Name(param: type, ...).
type DocAttribute struct {
	Name   string
	Params []luatype.Param
}

// DocAttributeItem is the payload of one entry in ---@[a, b(1)].
type DocAttributeItem struct {
	Name string
}

// DocDiagnostic is the payload of ---@diagnostic action: code, ...
type DocDiagnostic struct {
	Action string
	Codes  []string
}

// DocOther is the payload of an unrecognized tag.
type DocOther struct {
	Tag     string
	Content string
}
