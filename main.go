package main

import "ipa/internal/ipa"

func main() {
	ipa.Main()
}
