// Wallgen - конвейер генерации и публикации обоев.
package main

import "github.com/artemshloyda/wallgen/internal/cli"

func main() {
	cli.Execute()
}
