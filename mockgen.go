//go:build gomock || generate

package placeholder

//go:generate sh -c "go run go.uber.org/mock/mockgen -typed -build_flags=\"-tags=gomock\" -package placeholder_test -self_package github.com/Sasasu/placeholder -destination dispatch_mock_test.go github.com/Sasasu/placeholder packetConn && go run golang.org/x/tools/cmd/goimports -w dispatch_mock_test.go"
