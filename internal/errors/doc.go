// Package errors provides structured, actionable error messages for weblisk.
//
// Each registered error carries a code, a category, a plain-language
// message, and optionally a longer detail, a fix suggestion, and a
// documentation link. Errors print nicely to a terminal and degrade to a
// compact single line where colors are unwanted.
//
// # Error Categories
//
//   - config: configuration loading and validation errors
//   - protocol: wire protocol errors (malformed frames, bad envelopes)
//   - runtime: dispatch and handler execution errors
//   - validation: user input errors
//   - cli: command line tool errors
//
// # Usage
//
//	err := errors.New("E102").
//	    WithDetail("weblisk.json line 14: trailing comma").
//	    WithSuggestion("Remove the trailing comma after the last entry")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E102: Configuration file is not valid JSON
//	//
//	//   weblisk.json line 14: trailing comma
//	//
//	//   Hint: Remove the trailing comma after the last entry
//	//
//	//   Learn more: https://weblisk.dev/docs/errors/E102
package errors
