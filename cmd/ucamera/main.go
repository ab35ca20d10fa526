// Command ucamera builds the Unity camera plugin as a shared library:
//
//	GOOS=android CGO_ENABLED=1 go build -buildmode=c-shared -o libucamera.so ./cmd/ucamera
package main

func main() {}
