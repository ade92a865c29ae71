package main

import (
	ascs "github.com/doismellburning/ascs/src"
)

func main() {
	ascs.AcceptorDemoMain()
}
