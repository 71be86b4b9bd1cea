// Command diagramsvc runs the diagram generation microservice.
package main

import "github.com/archviz/diagramsvc/cmd/diagramsvc/cmd"

func main() {
	cmd.Execute()
}
