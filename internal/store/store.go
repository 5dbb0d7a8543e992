package store

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	perrors "github.com/Iron-Ham/filepipe/internal/errors"
	"github.com/spf13/afero"
)

const (
	// MessageExt is the conventional extension for message files.
	MessageExt = ".json"
	// ReasonExt is appended to a message's base name to form its deadletter
	// reason file name.
	ReasonExt = ".error.txt"

	tempPrefix = "."
	tempSuffix = ".tmp"

	dirPerm  = 0o755
	filePerm = 0o644

	// maxSettleAttempts bounds the name~N candidates tried on a collision.
	maxSettleAttempts = 1000
)

// Option configures a Store.
type Option func(*Store)

// WithFs sets the filesystem the store operates on. Tests use this to run
// against afero.NewMemMapFs; production uses the OS filesystem.
func WithFs(fsys afero.Fs) Option {
	return func(s *Store) {
		s.fs = fsys
	}
}

// Store is an IPC root directory containing one subdirectory per channel.
type Store struct {
	fs   afero.Fs
	root string
}

// New returns a store rooted at root. No directories are created until a
// channel is used.
func New(root string, opts ...Option) *Store {
	s := &Store{
		fs:   afero.NewOsFs(),
		root: filepath.Clean(root),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the IPC root directory.
func (s *Store) Root() string {
	return s.root
}

// Fs returns the filesystem the store operates on.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// Channel returns a handle for the named channel. The name must be a single
// path element.
func (s *Store) Channel(name string) (*Channel, error) {
	if err := ValidateName(name); err != nil {
		return nil, perrors.Wrapf(err, "channel %q", name)
	}
	return &Channel{
		name: name,
		dir:  filepath.Join(s.root, name),
		fs:   s.fs,
	}, nil
}

// Channels lists the channel directories under the root, sorted by name.
// A missing root yields an empty list.
func (s *Store) Channels() ([]string, error) {
	infos, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, perrors.NewStoreError("list channels", err)
	}
	var names []string
	for _, info := range infos {
		if info.IsDir() && !strings.HasPrefix(info.Name(), ".") {
			names = append(names, info.Name())
		}
	}
	return names, nil
}

// Channel is the directory tree of a single channel.
type Channel struct {
	name string
	dir  string
	fs   afero.Fs
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return c.name
}

// Dir returns the channel's root directory.
func (c *Channel) Dir() string {
	return c.dir
}

// Path returns the directory backing loc.
func (c *Channel) Path(loc Location) string {
	if loc.Owner == "" {
		return filepath.Join(c.dir, string(loc.State))
	}
	return filepath.Join(c.dir, string(loc.State), loc.Owner)
}

func (c *Channel) file(loc Location, name string) string {
	return filepath.Join(c.Path(loc), name)
}

func (c *Channel) storeErr(op string, loc Location, name string, cause error) *perrors.StoreError {
	e := perrors.NewStoreError(op, cause).WithChannel(c.name).WithLocation(loc.String())
	if name != "" {
		e = e.WithFile(name)
	}
	return e
}

// EnsureLayout creates the unowned directories of the channel plus any extra
// locations given. It is idempotent.
func (c *Channel) EnsureLayout(extra ...Location) error {
	locs := append([]Location{Inbox(), Outbox(), Deadletter()}, extra...)
	for _, loc := range locs {
		if err := c.ensure(loc); err != nil {
			return err
		}
	}
	return nil
}

func (c *Channel) ensure(loc Location) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	if err := c.fs.MkdirAll(c.Path(loc), dirPerm); err != nil {
		return c.storeErr("create directory", loc, "", err)
	}
	return nil
}

// Write atomically places a new message in the inbox.
func (c *Channel) Write(name string, data []byte) error {
	return c.WriteTo(Inbox(), name, data)
}

// WriteTo atomically writes data as name in loc. The content is written and
// synced to a hidden temporary file in the same directory, then published
// under name. If name is already taken the write fails with ErrExists and
// the existing file is left untouched.
func (c *Channel) WriteTo(loc Location, name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	return c.writeAtomic(loc, name, data)
}

func (c *Channel) writeAtomic(loc Location, name string, data []byte) error {
	if err := c.ensure(loc); err != nil {
		return err
	}

	dir := c.Path(loc)
	tmp, err := afero.TempFile(c.fs, dir, tempPrefix+name+".*"+tempSuffix)
	if err != nil {
		return c.storeErr("create temp file", loc, name, err)
	}
	tmpPath := tmp.Name()

	// Remove the temp file on any failure below; after a successful publish
	// this is a no-op returning ErrNotExist.
	defer func() { _ = c.fs.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return c.storeErr("write temp file", loc, name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return c.storeErr("sync temp file", loc, name, err)
	}
	if err := tmp.Close(); err != nil {
		return c.storeErr("close temp file", loc, name, err)
	}
	if err := c.fs.Chmod(tmpPath, filePerm); err != nil {
		return c.storeErr("chmod temp file", loc, name, err)
	}
	if err := c.renameNoReplace(tmpPath, filepath.Join(dir, name)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return perrors.Wrapf(perrors.ErrExists, "%s/%s", loc, name)
		}
		return c.storeErr("publish temp file", loc, name, err)
	}
	return nil
}

// renameNoReplace moves src to dst and fails with fs.ErrExist if dst is
// taken. On the OS filesystem the file is hard-linked to dst, which fails
// atomically on an existing name, and src is then removed. The source must
// be private to the caller (a temp file or an owned directory), because
// until the removal the file is visible under both names.
//
// Filesystems without hard links fall back to a stat check before the
// rename, which only holds while a single actor writes to dst.
func (c *Channel) renameNoReplace(src, dst string) error {
	if _, ok := c.fs.(*afero.OsFs); ok {
		err := os.Link(src, dst)
		switch {
		case err == nil:
			return removeLinked(src)
		case errors.Is(err, fs.ErrExist):
			// A crash between link and remove leaves the same file under
			// both names; finish that move instead of reporting a collision.
			if sameFile(src, dst) {
				return removeLinked(src)
			}
			return err
		case isNotExist(err):
			return err
		}
	}
	if _, err := c.fs.Stat(dst); err == nil {
		return &fs.PathError{Op: "rename", Path: dst, Err: fs.ErrExist}
	} else if !isNotExist(err) {
		return err
	}
	return c.fs.Rename(src, dst)
}

func removeLinked(src string) error {
	if err := os.Remove(src); err != nil && !isNotExist(err) {
		return err
	}
	return nil
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// List returns the message file names in loc, sorted lexicographically.
// Temporary files, hidden files, reason files and subdirectories are skipped.
// The directory is created if absent.
func (c *Channel) List(loc Location) ([]string, error) {
	if err := c.ensure(loc); err != nil {
		return nil, err
	}
	infos, err := afero.ReadDir(c.fs, c.Path(loc))
	if err != nil {
		return nil, c.storeErr("list", loc, "", err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() || !isMessageFile(info.Name()) {
			continue
		}
		names = append(names, info.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Read returns the content of name in loc. A file that vanished is reported
// as ErrClaimLost.
func (c *Channel) Read(loc Location, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(c.fs, c.file(loc, name))
	if err != nil {
		if isNotExist(err) {
			return nil, perrors.Wrapf(perrors.ErrClaimLost, "%s/%s", loc, name)
		}
		return nil, c.storeErr("read", loc, name, err)
	}
	return data, nil
}

// Move renames name from one location to another. The destination directory
// is created if needed. Move never replaces a file: if name is already taken
// at the destination it returns an error wrapping ErrExists and the file
// stays where it was.
//
// If the source no longer exists, Move returns an error wrapping
// ErrClaimLost: another actor moved it first. Callers treat that as a normal
// outcome and skip the file. Any other failure is a StoreError and the file
// stays where it was.
func (c *Channel) Move(from Location, name string, to Location) error {
	return c.move(from, name, to, name, false)
}

// Claim moves name into an owned location. It is Move restricted to
// destinations that carry an owner ID, and it is a plain rename so that of
// several actors racing for the same file exactly one wins.
func (c *Channel) Claim(from Location, name string, to Location) error {
	if !to.State.Owned() {
		return perrors.Wrapf(perrors.ErrInvalidName, "claim destination %s is not owned", to)
	}
	return c.move(from, name, to, name, true)
}

func (c *Channel) move(from Location, name string, to Location, toName string, claim bool) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := ValidateName(toName); err != nil {
		return err
	}
	if err := from.Validate(); err != nil {
		return err
	}
	if err := c.ensure(to); err != nil {
		return err
	}

	src, dst := c.file(from, name), c.file(to, toName)
	var err error
	if claim {
		// The destination is owned by the claimant, so nobody else can
		// create dst between this check and the rename.
		if _, statErr := c.fs.Stat(dst); statErr == nil {
			return perrors.Wrapf(perrors.ErrExists, "%s/%s", to, toName)
		}
		err = c.fs.Rename(src, dst)
	} else {
		err = c.renameNoReplace(src, dst)
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		return perrors.Wrapf(perrors.ErrExists, "%s/%s", to, toName)
	}
	if isNotExist(err) {
		// ENOENT can also mean the destination directory disappeared.
		// Only a missing source is a lost claim.
		if _, statErr := c.fs.Stat(src); statErr != nil && isNotExist(statErr) {
			return perrors.Wrapf(perrors.ErrClaimLost, "%s/%s", from, name)
		}
	}
	return c.storeErr("move to "+to.String(), from, name, err)
}

// Settle moves name from an in-flight location into a terminal one
// (archive or deadletter) and returns the name it was stored under. If name
// is already taken there, the message is stored as name~1, name~2, ...
// ("a.json" becomes "a~1.json") so that nothing is overwritten.
func (c *Channel) Settle(from Location, name string, to Location) (string, error) {
	var last error
	for i := 0; i < maxSettleAttempts; i++ {
		target := SettledName(name, i)
		err := c.move(from, name, to, target, false)
		if err == nil {
			return target, nil
		}
		if !perrors.Is(err, perrors.ErrExists) {
			return "", err
		}
		last = err
	}
	return "", c.storeErr("settle into "+to.String(), from, name, last)
}

// Deadletter records reason for name and moves the message from loc into
// deadletter/, returning the name it was stored under (see Settle). The
// reason file is written first, so a deadlettered message always has one.
// If the message turns out to be gone, the reason file is removed again and
// ErrClaimLost is returned.
func (c *Channel) Deadletter(from Location, name, reason string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if !strings.HasSuffix(reason, "\n") {
		reason += "\n"
	}

	var last error
	for i := 0; i < maxSettleAttempts; i++ {
		target := SettledName(name, i)
		reasonName := ReasonName(target)
		if err := c.writeAtomic(Deadletter(), reasonName, []byte(reason)); err != nil {
			if perrors.Is(err, perrors.ErrExists) {
				last = err
				continue
			}
			return "", err
		}
		err := c.move(from, name, Deadletter(), target, false)
		if err == nil {
			return target, nil
		}
		_ = c.fs.Remove(c.file(Deadletter(), reasonName))
		if !perrors.Is(err, perrors.ErrExists) {
			return "", err
		}
		last = err
	}
	return "", c.storeErr("deadletter", from, name, last)
}

// Reason returns the recorded deadletter reason for name, without the
// trailing newline.
func (c *Channel) Reason(name string) (string, error) {
	data, err := afero.ReadFile(c.fs, c.file(Deadletter(), ReasonName(name)))
	if err != nil {
		return "", c.storeErr("read reason", Deadletter(), ReasonName(name), err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// Remove deletes name from loc. Removing a file that is already gone is not
// an error.
func (c *Channel) Remove(loc Location, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := c.fs.Remove(c.file(loc, name)); err != nil && !isNotExist(err) {
		return c.storeErr("remove", loc, name, err)
	}
	return nil
}

// Owners lists the owner subdirectories of an owned state, sorted by name.
func (c *Channel) Owners(state State) ([]string, error) {
	if !state.Owned() {
		return nil, perrors.Wrapf(perrors.ErrInvalidName, "%s has no owners", state)
	}
	dir := filepath.Join(c.dir, string(state))
	infos, err := afero.ReadDir(c.fs, dir)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, c.storeErr("list owners", Location{State: state}, "", err)
	}
	var owners []string
	for _, info := range infos {
		if info.IsDir() && ValidateName(info.Name()) == nil {
			owners = append(owners, info.Name())
		}
	}
	return owners, nil
}

// Requeue moves every message stranded in an in-flight location (routing or
// processing) back to where it came from, so another actor can pick it up.
// It returns the names that were moved. A message whose name is already
// taken at the target stays where it is and is returned in skipped.
func (c *Channel) Requeue(loc Location) (moved, skipped []string, err error) {
	target, ok := loc.RequeueTarget()
	if !ok {
		return nil, nil, perrors.Wrapf(perrors.ErrInvalidName, "cannot requeue from %s", loc)
	}
	names, err := c.List(loc)
	if err != nil {
		return nil, nil, err
	}
	for _, name := range names {
		if err := c.Move(loc, name, target); err != nil {
			switch {
			case perrors.Is(err, perrors.ErrClaimLost):
				continue
			case perrors.Is(err, perrors.ErrExists):
				skipped = append(skipped, name)
				continue
			}
			return moved, skipped, err
		}
		moved = append(moved, name)
	}
	return moved, skipped, nil
}

// ReasonName returns the deadletter reason file name for a message:
// "a.json" -> "a.error.txt", "a.bin" -> "a.bin.error.txt". "a" and "a.json"
// share a reason name; Deadletter stores the second one as "a~1".
func ReasonName(name string) string {
	return strings.TrimSuffix(name, MessageExt) + ReasonExt
}

// SettledName returns the i-th candidate name Settle and Deadletter try for
// name: name itself for 0, then "a~1.json", "a~2.json", ...
func SettledName(name string, i int) string {
	if i == 0 {
		return name
	}
	base, ext := name, ""
	if strings.HasSuffix(name, MessageExt) && name != MessageExt {
		base, ext = strings.TrimSuffix(name, MessageExt), MessageExt
	}
	return base + "~" + strconv.Itoa(i) + ext
}

// ValidateName checks that name is usable as a channel, owner or message
// name: a single non-hidden path element that cannot be mistaken for a
// temporary or reason file.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return perrors.Wrapf(perrors.ErrInvalidName, "%q", name)
	case strings.ContainsRune(name, '/'), strings.ContainsRune(name, filepath.Separator), strings.ContainsRune(name, 0):
		return perrors.Wrapf(perrors.ErrInvalidName, "%q contains a path separator", name)
	case !isMessageFile(name):
		return perrors.Wrapf(perrors.ErrInvalidName, "%q is reserved for hidden, temporary or reason files", name)
	}
	return nil
}

func isMessageFile(name string) bool {
	return !strings.HasPrefix(name, tempPrefix) &&
		!strings.HasSuffix(name, tempSuffix) &&
		!strings.HasSuffix(name, ReasonExt)
}

func isNotExist(err error) bool {
	return os.IsNotExist(err) || perrors.Is(err, fs.ErrNotExist)
}
