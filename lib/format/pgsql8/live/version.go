package live

import "fmt"

// VersionNum is the server_version_num of a server. Before 10.0 it is
// X*10000+Y*100+Z for X.Y.Z, from 10.0 on it is X*10000+Y for X.Y.
type VersionNum int

func NewVersionNum(major, minor int, patch ...int) VersionNum {
	if major >= 10 {
		return VersionNum(major*10000 + minor)
	}
	p := 0
	if len(patch) > 0 {
		p = patch[0]
	}
	return VersionNum(major*10000 + minor*100 + p)
}

func (self VersionNum) IsAtLeast(major, minor int, patch ...int) bool {
	return self >= NewVersionNum(major, minor, patch...)
}

func (self VersionNum) Major() int {
	return int(self) / 10000
}

func (self VersionNum) String() string {
	if self.Major() < 10 {
		return fmt.Sprintf("%d.%d.%d", self.Major(), (int(self)%10000)/100, int(self)%100)
	}
	return fmt.Sprintf("%d.%d", self.Major(), int(self)%10000)
}
