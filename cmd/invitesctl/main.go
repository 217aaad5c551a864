package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aulaviva/invites/internal/client"
	identitydto "github.com/aulaviva/invites/internal/http/v2/dto/identity"
	invdto "github.com/aulaviva/invites/internal/http/v2/dto/invitations"
	schooldto "github.com/aulaviva/invites/internal/http/v2/dto/schools"
	"github.com/aulaviva/invites/internal/invitelink"
)

// sessionFile es lo que invitesctl guarda entre invocaciones.
type sessionFile struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type cli struct {
	BaseURL     string
	SessionPath string
	OutFormat   string // "json" | "text"
	Timeout     time.Duration

	api *client.Client
}

func (c *cli) init() {
	c.api = client.New(c.BaseURL, client.WithHTTPClient(&http.Client{Timeout: c.Timeout}))
	if b, err := os.ReadFile(c.SessionPath); err == nil {
		var s sessionFile
		if json.Unmarshal(b, &s) == nil {
			c.api.SetTokens(s.AccessToken, s.RefreshToken)
		}
	}
}

func (c *cli) save() error {
	access, refresh := c.api.Tokens()
	b, err := json.MarshalIndent(sessionFile{AccessToken: access, RefreshToken: refresh}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.SessionPath, b, 0o600)
}

func (c *cli) print(v any, text string) {
	if c.OutFormat == "json" {
		p, _ := json.MarshalIndent(v, "", "  ")
		fmt.Println(string(p))
		return
	}
	fmt.Println(text)
}

// explain traduce los kinds del API a mensajes para la terminal.
func explain(err error) error {
	switch {
	case errors.Is(err, client.ErrExpired):
		return fmt.Errorf("la invitación venció, pedí un link nuevo: %w", err)
	case errors.Is(err, client.ErrInvitationUsed):
		return fmt.Errorf("la invitación ya fue usada: %w", err)
	case errors.Is(err, client.ErrInvalidInvitation):
		return fmt.Errorf("la invitación no es válida: %w", err)
	case errors.Is(err, client.ErrForbidden):
		return fmt.Errorf("no tenés permisos para esto: %w", err)
	case errors.Is(err, client.ErrUnauthenticated):
		return fmt.Errorf("sesión ausente o vencida (login o session refresh): %w", err)
	case errors.Is(err, client.ErrStorage):
		return fmt.Errorf("el servidor no pudo guardar, reintentá: %w", err)
	}
	return err
}

func main() {
	c := &cli{
		BaseURL:     envOr("INVITES_URL", "http://localhost:8080"),
		SessionPath: envOr("INVITES_SESSION", ".invitesctl-session.json"),
		OutFormat:   envOr("INVITES_OUT", "text"),
		Timeout:     30 * time.Second,
	}

	root := &cobra.Command{
		Use:           "invitesctl",
		Short:         "CLI para el servicio de invitaciones de AulaViva",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.init()
		},
	}
	root.PersistentFlags().StringVar(&c.BaseURL, "url", c.BaseURL, "URL base del servicio (env INVITES_URL)")
	root.PersistentFlags().StringVar(&c.SessionPath, "session", c.SessionPath, "Archivo de sesión (env INVITES_SESSION)")
	root.PersistentFlags().StringVar(&c.OutFormat, "out", c.OutFormat, "Formato de salida: json|text")
	root.PersistentFlags().DurationVar(&c.Timeout, "timeout", c.Timeout, "Timeout HTTP")

	root.AddCommand(signupCmd(c), loginCmd(c), meCmd(c), sessionCmd(c), schoolCmd(c), classroomCmd(c), inviteCmd(c))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, explain(err).Error())
		os.Exit(1)
	}
}

func signupCmd(c *cli) *cobra.Command {
	var in identitydto.SignupRequest
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Crear cuenta y guardar la sesión",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.api.Signup(cmd.Context(), in)
			if err != nil {
				return err
			}
			c.print(s, "principal="+s.PrincipalID)
			return c.save()
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "Email")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "Nombre")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "Apellido")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func loginCmd(c *cli) *cobra.Command {
	var in identitydto.LoginRequest
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Iniciar sesión y guardarla",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.api.Login(cmd.Context(), in)
			if err != nil {
				return err
			}
			c.print(s, fmt.Sprintf("principal=%s role=%s", s.PrincipalID, orDash(s.Claims.Role)))
			return c.save()
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "Email")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func meCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Ver claims actuales y profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			me, err := c.api.Me(cmd.Context())
			if err != nil {
				return err
			}
			c.print(me, fmt.Sprintf("%s role=%s school=%s classroom=%s",
				me.Email, orDash(me.Claims.Role), orDash(me.Claims.SchoolID), orDash(me.Claims.ClassroomID)))
			return nil
		},
	}
}

func sessionCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "session", Short: "Operaciones sobre la sesión"}
	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Rotar refresh token y traer claims nuevas",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.api.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			c.print(s, "role="+orDash(s.Claims.Role))
			return c.save()
		},
	})
	return cmd
}

func schoolCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "school", Short: "Escuelas"}
	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Crear escuela (quien llama pasa a DIRECTOR)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.api.CreateSchool(cmd.Context(), name)
			if err != nil {
				return err
			}
			// las claims cambiaron: traer un session token nuevo
			if _, err := c.api.Refresh(cmd.Context()); err != nil {
				return err
			}
			c.print(s, "school="+s.ID)
			return c.save()
		},
	}
	create.Flags().StringVar(&name, "name", "", "Nombre de la escuela")
	_ = create.MarkFlagRequired("name")
	cmd.AddCommand(create)
	return cmd
}

func classroomCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "classroom", Short: "Aulas"}

	var in schooldto.CreateClassroomRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Crear aula en la escuela del director",
		RunE: func(cmd *cobra.Command, args []string) error {
			cr, err := c.api.CreateClassroom(cmd.Context(), in)
			if err != nil {
				return err
			}
			c.print(cr, "classroom="+cr.ID)
			return nil
		},
	}
	create.Flags().StringVar(&in.Name, "name", "", "Nombre del aula")
	create.Flags().StringVar(&in.Grade, "grade", "", "Grado (opcional)")
	_ = create.MarkFlagRequired("name")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Ver un aula",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cr, err := c.api.GetClassroom(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			c.print(cr, fmt.Sprintf("%s %s (%s)", cr.ID, cr.Name, orDash(cr.Grade)))
			return nil
		},
	}

	cmd.AddCommand(create, get)
	return cmd
}

func inviteCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "invite", Short: "Links de invitación"}

	var classroom, role string
	ensure := &cobra.Command{
		Use:   "ensure",
		Short: "Obtener (o crear) el link activo para aula + rol",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.api.EnsureInvitation(cmd.Context(), classroom, role)
			if err != nil {
				return err
			}
			c.print(out, out.URL)
			return nil
		},
	}
	ensure.Flags().StringVar(&classroom, "classroom", "", "ID del aula")
	ensure.Flags().StringVar(&role, "role", "PARENT", "Rol: PARENT|TEACHER")
	_ = ensure.MarkFlagRequired("classroom")

	preview := &cobra.Command{
		Use:   "preview <token|link>",
		Short: "Ver a qué aula lleva un link (sin sesión)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.api.PreviewInvitation(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			c.print(p, fmt.Sprintf("%s · %s (%s) vence %s",
				orDash(p.SchoolName), p.Classroom.Name, p.IntendedRole, p.ExpiresAt.Local().Format(time.RFC1123)))
			return nil
		},
	}

	var child string
	var wait time.Duration
	consume := &cobra.Command{
		Use:   "consume <token|link>",
		Short: "Aceptar una invitación y esperar las claims nuevas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy := client.DefaultRefreshPolicy()
			if wait > 0 {
				policy.MaxWait = wait
			}
			sc := client.NewSessionController(c.api, policy)
			claims, err := sc.AcceptInvitation(cmd.Context(), args[0], child)
			// consume aplicado o no, los tokens pudieron rotar
			if saveErr := c.save(); saveErr != nil && err == nil {
				err = saveErr
			}
			if err != nil {
				return err
			}
			c.print(claims, fmt.Sprintf("role=%s school=%s classroom=%s", claims.Role, claims.SchoolID, claims.ClassroomID))
			return nil
		},
	}
	consume.Flags().StringVar(&child, "child", "", "Nombre del hijo/a (solo PARENT)")
	consume.Flags().DurationVar(&wait, "wait", 0, "Espera máxima por las claims nuevas")

	var rev invdto.RevokeRequest
	revoke := &cobra.Command{
		Use:   "revoke",
		Short: "Revocar por --token o por --classroom + --role (solo director)",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.api.RevokeInvitation(cmd.Context(), rev)
			if err != nil {
				return err
			}
			c.print(out, fmt.Sprintf("revoked=%d", out.Revoked))
			return nil
		},
	}
	revoke.Flags().StringVar(&rev.Token, "token", "", "Token o link a revocar")
	revoke.Flags().StringVar(&rev.ClassroomID, "classroom", "", "ID del aula")
	revoke.Flags().StringVar(&rev.IntendedRole, "role", "", "Rol: PARENT|TEACHER")

	var send invdto.SendRequest
	sendCmd := &cobra.Command{
		Use:   "send",
		Short: "Mandar el link activo por email",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.api.SendInvitation(cmd.Context(), send)
			if err != nil {
				return err
			}
			c.print(out, "sent to "+out.SentTo)
			return nil
		},
	}
	sendCmd.Flags().StringVar(&send.ClassroomID, "classroom", "", "ID del aula")
	sendCmd.Flags().StringVar(&send.IntendedRole, "role", "PARENT", "Rol: PARENT|TEACHER")
	sendCmd.Flags().StringVar(&send.Email, "email", "", "Destinatario")
	_ = sendCmd.MarkFlagRequired("classroom")
	_ = sendCmd.MarkFlagRequired("email")

	var linkBase string
	link := &cobra.Command{
		Use:   "link <token|link>",
		Short: "Armar o parsear un deep link localmente",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := invitelink.Parse(args[0])
			if err != nil {
				return err
			}
			b, err := invitelink.NewBuilder(linkBase)
			if err != nil {
				return err
			}
			fmt.Println(b.Build(tok))
			return nil
		},
	}
	link.Flags().StringVar(&linkBase, "base", "aulaviva://invite", "Base del deep link")

	cmd.AddCommand(ensure, preview, consume, revoke, sendCmd, link)
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

