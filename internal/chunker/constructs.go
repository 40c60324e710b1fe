package chunker

import "github.com/dshills/docsync-mcp/pkg/types"

// construct is the closed set of syntactic shapes the grammar segmenter
// extracts. Node types are mapped onto it through the extractable table.
type construct uint8

const (
	constructNone construct = iota
	constructFunction
	constructMethod
	constructMember // method that only counts inside a container
	constructClass // container; members may be emitted individually
	constructInterface
	constructTypeDecl
	constructBinding // arrow function or lambda bound to a name
	constructWrapper // export statement or decorator around a declaration
)

// kind maps a construct to the chunk kind it produces. Functions found
// inside a container become methods.
func (c construct) kind(inContainer bool) types.ChunkKind {
	switch c {
	case constructFunction:
		if inContainer {
			return types.KindMethod
		}
		return types.KindFunction
	case constructMethod, constructMember:
		return types.KindMethod
	case constructClass:
		return types.KindClass
	case constructInterface:
		return types.KindInterface
	case constructTypeDecl:
		return types.KindType
	case constructBinding:
		return types.KindVariable
	case constructWrapper:
		return types.KindExport
	case constructNone:
		return ""
	}
	panic("chunker: unhandled construct")
}

var jsConstructs = map[string]construct{
	"function_declaration":           constructFunction,
	"generator_function_declaration": constructFunction,
	"class_declaration":              constructClass,
	"method_definition":              constructMember,
	"lexical_declaration":            constructBinding,
	"variable_declaration":           constructBinding,
	"export_statement":               constructWrapper,
}

var tsConstructs = merge(jsConstructs, map[string]construct{
	"abstract_class_declaration": constructClass,
	"interface_declaration":      constructInterface,
	"type_alias_declaration":     constructTypeDecl,
	"enum_declaration":           constructTypeDecl,
})

// extractable lists, per language, the node types that produce chunks
var extractable = map[types.Language]map[string]construct{
	types.LangGo: {
		"function_declaration": constructFunction,
		"method_declaration":   constructMethod,
		"type_declaration":     constructTypeDecl,
	},
	types.LangJavaScript: jsConstructs,
	types.LangTypeScript: tsConstructs,
	types.LangTSX:        tsConstructs,
	types.LangPython: {
		"function_definition":  constructFunction,
		"class_definition":     constructClass,
		"decorated_definition": constructWrapper,
		"expression_statement": constructBinding,
	},
	types.LangRust: {
		"function_item": constructFunction,
		"struct_item":   constructTypeDecl,
		"enum_item":     constructTypeDecl,
		"type_item":     constructTypeDecl,
		"trait_item":    constructInterface,
		"impl_item":     constructClass,
	},
	types.LangJava: {
		"class_declaration":       constructClass,
		"record_declaration":      constructClass,
		"interface_declaration":   constructInterface,
		"enum_declaration":        constructTypeDecl,
		"method_declaration":      constructMember,
		"constructor_declaration": constructMember,
	},
}

// lambdaValues are the node types that make a binding extractable
var lambdaValues = map[string]bool{
	"arrow_function":      true,
	"function_expression": true,
	"function":            true,
	"generator_function":  true,
	"lambda":              true,
}

func merge(base, extra map[string]construct) map[string]construct {
	out := make(map[string]construct, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// GrammarLanguages returns the languages that have an extractable table
func GrammarLanguages() []types.Language {
	return []types.Language{
		types.LangGo, types.LangJavaScript, types.LangTypeScript, types.LangTSX,
		types.LangPython, types.LangRust, types.LangJava,
	}
}
