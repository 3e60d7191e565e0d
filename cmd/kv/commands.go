package kv

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := session.Do("SET", args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println(reply.Text())
			return nil
		},
	}

	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := session.Do("GET", args[0])
			if err != nil {
				return err
			}
			fmt.Println(reply.Text())
			return nil
		},
	}

	delCmd = &cobra.Command{
		Use:   "del [key]...",
		Short: "Deletes one or more keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := session.Do(append([]string{"DEL"}, args...)...)
			if err != nil {
				return err
			}
			fmt.Println(reply.Text())
			return nil
		},
	}

	pingCmd = &cobra.Command{
		Use:   "ping",
		Short: "Checks the connection to the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := session.Do("PING")
			if err != nil {
				return err
			}
			fmt.Println(reply.Text())
			return nil
		},
	}

	rawCmd = &cobra.Command{
		Use:   "raw [command] [arg]...",
		Short: "Sends an arbitrary command and prints the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := session.Do(args...)
			if err != nil {
				return err
			}
			fmt.Println(reply.Text())
			return nil
		},
	}
)
