package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/retrofuture-os/coreos/blockdev"
	"github.com/retrofuture-os/coreos/disks"
	"github.com/retrofuture-os/coreos/fat12"
	"github.com/retrofuture-os/coreos/vfs"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Usage: "Manage FAT12 disk image files",
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "Create or wipe an image",
				Action:    formatImage,
				ArgsUsage: "IMAGE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "label", Value: "NONAME"},
					&cli.StringFlag{Name: "preset", Value: "floppy", Usage: "floppy, small, medium, or large"},
				},
			},
			{
				Name:      "ls",
				Usage:     "List a directory",
				Action:    listDir,
				ArgsUsage: "IMAGE [PATH]",
			},
			{
				Name:      "cat",
				Usage:     "Print a file's contents to stdout",
				Action:    catFile,
				ArgsUsage: "IMAGE PATH",
			},
			{
				Name:      "write",
				Usage:     "Write stdin to a file, creating it if necessary",
				Action:    writeFile,
				ArgsUsage: "IMAGE PATH",
			},
			{
				Name:      "rm",
				Usage:     "Delete a file",
				Action:    removeFile,
				ArgsUsage: "IMAGE PATH",
			},
			{
				Name:      "mkdir",
				Usage:     "Create a directory",
				Action:    makeDir,
				ArgsUsage: "IMAGE PATH",
			},
			{
				Name:      "rmdir",
				Usage:     "Remove an empty directory",
				Action:    removeDir,
				ArgsUsage: "IMAGE PATH",
			},
			{
				Name:      "df",
				Usage:     "Report free space",
				Action:    showFree,
				ArgsUsage: "IMAGE",
			},
			{
				Name:      "label",
				Usage:     "Print the volume label",
				Action:    showLabel,
				ArgsUsage: "IMAGE",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func formatImage(c *cli.Context) error {
	path := c.Args().Get(0)
	if path == "" {
		return cli.Exit("IMAGE argument required", 1)
	}

	preset, err := disks.Lookup(c.String("preset"))
	if err != nil {
		return err
	}
	totalSectors := preset.MaxSectors
	if totalSectors > 1<<20 {
		totalSectors = 2880 // "large" has no finite ceiling; pick a sane default image size
	}

	dev, err := blockdev.CreateFileDevice(path, fat12.SectorSize, uint64(totalSectors))
	if err != nil {
		return err
	}
	defer dev.Close()

	if err := fat12.Format(dev, c.String("label")); err != nil {
		return err
	}
	fmt.Printf("formatted %s (%d sectors, preset %q)\n", path, totalSectors, preset.Slug)
	return nil
}

func mountImage(imagePath string) (*vfs.VFS, *fat12.FileSystem, error) {
	dev, err := blockdev.OpenFileDevice(imagePath, fat12.SectorSize, false)
	if err != nil {
		return nil, nil, err
	}
	fs, err := fat12.Mount(dev)
	if err != nil {
		return nil, nil, err
	}

	v := vfs.New()
	if _, err := v.Mount("/", fat12.NewDriver(fs), false); err != nil {
		return nil, nil, err
	}
	return v, fs, nil
}

func listDir(c *cli.Context) error {
	imagePath := c.Args().Get(0)
	dirPath := c.Args().Get(1)
	if dirPath == "" {
		dirPath = "/"
	}

	v, _, err := mountImage(imagePath)
	if err != nil {
		return err
	}

	nodes, err := v.Readdir(dirPath)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		kind := "f"
		if n.IsDirectory() {
			kind = "d"
		}
		fmt.Printf("%s %8d %s\n", kind, n.Size, n.Name)
	}
	return nil
}

func catFile(c *cli.Context) error {
	imagePath := c.Args().Get(0)
	filePath := c.Args().Get(1)
	if filePath == "" {
		return cli.Exit("IMAGE and PATH arguments required", 1)
	}

	v, _, err := mountImage(imagePath)
	if err != nil {
		return err
	}

	h, err := v.Open(filePath, vfs.ORDONLY)
	if err != nil {
		return err
	}
	defer v.Close(h)

	buf := make([]byte, 4096)
	for {
		n, err := v.Read(h, buf)
		if n > 0 {
			os.Stdout.Write(buf[:n])
		}
		if err == io.EOF || n == 0 {
			break
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFile(c *cli.Context) error {
	imagePath := c.Args().Get(0)
	filePath := c.Args().Get(1)
	if filePath == "" {
		return cli.Exit("IMAGE and PATH arguments required", 1)
	}

	v, _, err := mountImage(imagePath)
	if err != nil {
		return err
	}

	h, err := v.Open(filePath, vfs.OWRONLY|vfs.OCREAT)
	if err != nil {
		return err
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		v.Close(h)
		return err
	}
	if _, err := v.Write(h, data); err != nil {
		v.Close(h)
		return err
	}
	if err := v.Close(h); err != nil {
		return err
	}
	return v.SyncAll()
}

func removeFile(c *cli.Context) error {
	v, _, err := mountImage(c.Args().Get(0))
	if err != nil {
		return err
	}
	if err := v.Unlink(c.Args().Get(1)); err != nil {
		return err
	}
	return v.SyncAll()
}

func makeDir(c *cli.Context) error {
	v, _, err := mountImage(c.Args().Get(0))
	if err != nil {
		return err
	}
	if _, err := v.Mkdir(c.Args().Get(1)); err != nil {
		return err
	}
	return v.SyncAll()
}

func removeDir(c *cli.Context) error {
	v, _, err := mountImage(c.Args().Get(0))
	if err != nil {
		return err
	}
	if err := v.Rmdir(c.Args().Get(1)); err != nil {
		return err
	}
	return v.SyncAll()
}

func showFree(c *cli.Context) error {
	_, fs, err := mountImage(c.Args().Get(0))
	if err != nil {
		return err
	}
	free, err := fs.FreeClusterCount()
	if err != nil {
		return err
	}
	fmt.Printf("%d clusters free (%d bytes)\n", free, uint(free)*fs.Boot.BytesPerCluster)
	return nil
}

func showLabel(c *cli.Context) error {
	_, fs, err := mountImage(c.Args().Get(0))
	if err != nil {
		return err
	}
	label, err := fs.Label()
	if err != nil {
		return err
	}
	fmt.Println(label)
	return nil
}
