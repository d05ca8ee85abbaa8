package ilrt

import (
	"fmt"
	"strings"

	"github.com/viper-lang/viper/internal/il"
)

// ParseSignature parses the compact spelling `ret(param,param,...)`
// into a structured Signature (spec §4.2, §6.2). An empty parameter
// list is spelled "ret()".
func ParseSignature(spelling string) (Signature, error) {
	open := strings.IndexByte(spelling, '(')
	if open < 0 || !strings.HasSuffix(spelling, ")") {
		return Signature{}, fmt.Errorf("ilrt: malformed signature %q", spelling)
	}
	retSpelling := spelling[:open]
	ret, ok := il.ParseType(retSpelling)
	if !ok {
		return Signature{}, fmt.Errorf("ilrt: unknown return type %q in %q", retSpelling, spelling)
	}
	inner := spelling[open+1 : len(spelling)-1]
	var params []il.Type
	if inner != "" {
		for _, part := range strings.Split(inner, ",") {
			part = strings.TrimSpace(part)
			pt, ok := il.ParseType(part)
			if !ok {
				return Signature{}, fmt.Errorf("ilrt: unknown parameter type %q in %q", part, spelling)
			}
			params = append(params, pt)
		}
	}
	return Signature{Ret: ret, Params: params}, nil
}
