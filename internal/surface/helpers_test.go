// internal/surface/helpers_test.go
package surface

import "github.com/xkilldash9x/scrolllab/api/schemas"

func testSettings() schemas.ScrollSettings { return schemas.DefaultScrollSettings() }
