package main

import "github.com/vibast-solutions/ms-go-blog-auth/cmd"

func main() {
	cmd.Execute()
}
