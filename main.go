package main

import "github.com/alunocanva25-hub/dashboard-iw58/cmd"

func main() {
	cmd.Execute()
}
