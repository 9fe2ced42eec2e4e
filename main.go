package main

import (
	"github.com/VIER-CognitiveVoice/cvg-connect/cmd"
)

func main() {
	cmd.Execute()
}
