package dyndata_test

import (
	"fmt"

	"github.com/pagecraft/render-engine/internal/app/services/dyndata"
)

func ExampleCanonicalize() {
	for _, dataType := range []string{"agents", "asesores", "lista_asesores"} {
		key, _ := dyndata.Canonicalize(dataType)
		fmt.Println(key)
	}
	// Output:
	// advisors
	// advisors
	// advisors
}
