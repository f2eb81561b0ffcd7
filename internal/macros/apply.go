// # internal/macros/apply.go
package macros

import (
	errs "crateview/internal/core/errors"
	"crateview/internal/token"
)

// Apply expands one invocation against a definition. Rules are tried top to
// bottom; each attempt starts from a fresh cursor and a fresh binding state,
// so a rule that fails halfway leaves nothing behind for the next one.
func Apply(def *Def, input token.Stream) (token.Stream, error) {
	var lastErr error
	for _, rule := range def.Rules {
		st := newMatchState()
		c := token.NewCursor(input)
		if err := consumeSeq(rule.matcher, st, c); err != nil {
			lastErr = err
			continue
		}
		if !c.Done() {
			lastErr = errs.Newf(errs.CodeMacroMatch, "unexpected trailing tokens: %s", c.Rest())
			continue
		}
		tr := &transcriber{bindings: st.bindings}
		return tr.run(rule.transcriber)
	}
	if lastErr == nil {
		lastErr = errs.New(errs.CodeMacroMatch, "no rules")
	}
	return nil, errs.Wrap(lastErr, errs.CodeMacroMatch, "no rule matched invocation").(*errs.DomainError).
		WithContext(errs.CtxMacro, def.Name)
}
