package browser

import (
	"encoding/json"
	"fmt"
)

// resolveJS walks locator steps from the document; it yields null when a step has
// fewer matches than the index it asks for.
const resolveJS = `(steps) => {
	let el = document;
	for (const s of steps) {
		const all = el.querySelectorAll(s.q);
		if (all.length <= s.n) return null;
		el = all[s.n];
	}
	return el;
}`

func stepsJSON(loc Locator) string {
	steps := loc.steps
	if steps == nil {
		steps = []step{}
	}
	b, _ := json.Marshal(steps)
	return string(b)
}

func quoteJS(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// countScript evaluates to the number of selector matches inside parent, or -1
// when parent itself does not resolve.
func countScript(parent Locator, selector string) string {
	return fmt.Sprintf(`(() => {
	const parent = (%s)(%s);
	if (!parent) return -1;
	return parent.querySelectorAll(%s).length;
})()`, resolveJS, stepsJSON(parent), quoteJS(selector))
}

// clickScript evaluates to true after clicking loc, false when loc does not resolve.
func clickScript(loc Locator) string {
	return fmt.Sprintf(`(() => {
	const el = (%s)(%s);
	if (!el || el === document) return false;
	el.click();
	return true;
})()`, resolveJS, stepsJSON(loc))
}

// callScript applies the function expression script to a JSON-encoded arg.
func callScript(script string, arg any) (string, error) {
	b, err := json.Marshal(arg)
	if err != nil {
		return "", fmt.Errorf("encode script arg: %w", err)
	}
	return fmt.Sprintf("(%s)(%s)", script, b), nil
}
