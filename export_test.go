package otl

// ExportedLexer exposes the lexer definition to external tests.
func ExportedLexer() *otlDefinition { return otlLexer }
